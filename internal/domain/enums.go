package domain

import (
	"fmt"
	"strings"
)

// Mode is the transportation method used for a trip.
type Mode string

const (
	ModeBicycle     Mode = "Bicycle"
	ModeBus         Mode = "Bus"
	ModeRideshare   Mode = "Rideshare"
	ModeSubway      Mode = "Subway"
	ModeTelecommute Mode = "Telecommute"
	ModeTrain       Mode = "Train"
	ModeWalk        Mode = "Walk"
)

// Modes lists every mode in picker order.
var Modes = []Mode{ModeBicycle, ModeBus, ModeRideshare, ModeSubway, ModeTelecommute, ModeTrain, ModeWalk}

var modeImages = map[Mode]string{
	ModeBicycle:     "trans-bike",
	ModeBus:         "trans-bus",
	ModeRideshare:   "trans-rideshare",
	ModeSubway:      "trans-subway",
	ModeTelecommute: "trans-telecommute",
	ModeTrain:       "trans-train",
	ModeWalk:        "trans-walk",
}

// ImageName is the asset name a client renders for the mode.
func (m Mode) ImageName() string { return modeImages[m] }

func (m Mode) String() string { return string(m) }

// Valid reports whether m is one of Modes.
func (m Mode) Valid() bool {
	_, ok := modeImages[m]
	return ok
}

// ParseMode accepts a mode name case-insensitively.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrValidation, s)
}

// Category is the purpose of a manually logged trip.
type Category string

const (
	CategoryDining        Category = "Dining"
	CategoryEntertainment Category = "Entertainment"
	CategorySocial        Category = "Friends, Family or Social"
	CategoryGrocery       Category = "Grocery"
	CategoryMedical       Category = "Medical Appointment"
	CategoryMeeting       Category = "Meeting"
	CategoryPark          Category = "Parks or Recreation"
	CategorySchool        Category = "School or University"
	CategoryShopping      Category = "Shopping"
	CategoryWork          Category = "Work"
	CategoryWorship       Category = "Place of Worship"
	CategoryOther         Category = "Other"
)

// Categories lists every category in picker order.
var Categories = []Category{
	CategoryDining, CategoryEntertainment, CategorySocial, CategoryGrocery,
	CategoryMedical, CategoryMeeting, CategoryPark, CategorySchool,
	CategoryShopping, CategoryWork, CategoryWorship, CategoryOther,
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts a category display string case-insensitively.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, s)
}

// LogType records how a trip was captured.
type LogType string

const (
	LogManual  LogType = "Manual"
	LogTracked LogType = "Tracked"
)

func (l LogType) String() string { return string(l) }

// ParseLogType parses a stored log type code.
func ParseLogType(s string) (LogType, error) {
	switch LogType(s) {
	case LogManual, LogTracked:
		return LogType(s), nil
	}
	return "", fmt.Errorf("%w: unknown log type %q", ErrValidation, s)
}
