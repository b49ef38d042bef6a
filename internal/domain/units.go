package domain

import (
	"fmt"
	"strings"
)

// LengthUnit is a unit of distance with a fixed conversion factor to meters.
// Meters are the canonical unit: every conversion goes through meters, never
// unit to unit, so rounding error cannot compound.
type LengthUnit string

const (
	Mile      LengthUnit = "Mile"
	Meter     LengthUnit = "Meter"
	Kilometer LengthUnit = "Kilometer"
)

// LengthUnits lists every known unit.
var LengthUnits = []LengthUnit{Mile, Meter, Kilometer}

// UserLengthUnits lists the units a user may choose as their display default.
var UserLengthUnits = []LengthUnit{Mile, Kilometer}

// ConversionFactor is the value-per-meter ratio: value = meters * factor.
func (u LengthUnit) ConversionFactor() float64 {
	switch u {
	case Mile:
		return 0.00062137
	case Kilometer:
		return 0.001
	default:
		return 1.0
	}
}

// Abbreviation returns the short display suffix (mi, m, km).
func (u LengthUnit) Abbreviation() string {
	switch u {
	case Mile:
		return "mi"
	case Kilometer:
		return "km"
	default:
		return "m"
	}
}

func (u LengthUnit) String() string { return string(u) }

// Valid reports whether u is one of LengthUnits.
func (u LengthUnit) Valid() bool {
	for _, v := range LengthUnits {
		if u == v {
			return true
		}
	}
	return false
}

// UserSelectable reports whether u may be stored as the default display unit.
func (u LengthUnit) UserSelectable() bool {
	for _, v := range UserLengthUnits {
		if u == v {
			return true
		}
	}
	return false
}

// ParseLengthUnit accepts a unit name or abbreviation, case-insensitively.
func ParseLengthUnit(s string) (LengthUnit, error) {
	s = strings.TrimSpace(s)
	for _, u := range LengthUnits {
		if strings.EqualFold(s, string(u)) || strings.EqualFold(s, u.Abbreviation()) {
			return u, nil
		}
	}
	return "", fmt.Errorf("%w: unknown length unit %q", ErrValidation, s)
}

// ToMeters converts value expressed in unit into meters.
func ToMeters(value float64, unit LengthUnit) float64 {
	return value / unit.ConversionFactor()
}

// FromMeters converts meters into unit.
func FromMeters(meters float64, unit LengthUnit) float64 {
	return meters * unit.ConversionFactor()
}
