package handler

import (
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/store"
)

// Trip is the JSON representation of a logged trip.
type Trip struct {
	ID               uuid.UUID  `json:"id"`
	LogType          string     `json:"log_type"`
	Mode             string     `json:"mode"`
	ModeImage        string     `json:"mode_image"`
	Category         *string    `json:"category,omitempty"`
	StartTimestamp   time.Time  `json:"start_timestamp"`
	EndTimestamp     *time.Time `json:"end_timestamp,omitempty"`
	DistanceMeters   float64    `json:"distance_meters"`
	Pending          bool       `json:"pending"`
	FuelPrice        *FuelPrice `json:"fuel_price,omitempty"`
	Vehicle          *Vehicle   `json:"vehicle,omitempty"`
	MoneySaved       *string    `json:"money_saved,omitempty"`
	FuelSavedGallons *float64   `json:"fuel_saved_gallons,omitempty"`
	Waypoints        []Waypoint `json:"waypoints,omitempty"`
}

// Waypoint is one GPS sample of a tracked trip.
type Waypoint struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Altitude           float64   `json:"altitude"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	VerticalAccuracy   float64   `json:"vertical_accuracy"`
	Speed              float64   `json:"speed"`
	Course             float64   `json:"course"`
	Timestamp          time.Time `json:"timestamp"`
}

// FuelPrice is a weekly retail fuel price.
type FuelPrice struct {
	SeriesID  string `json:"series_id"`
	StartDate string `json:"start_date"`
	Price     string `json:"price"`
}

// Vehicle is the reference vehicle savings are computed against.
type Vehicle struct {
	ID           uuid.UUID `json:"id"`
	Year         int       `json:"year"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Description  string    `json:"description"`
	EPAVehicleID string    `json:"epa_vehicle_id,omitempty"`
	CombinedMPG  *float64  `json:"combined_mpg,omitempty"`
}

// Settings is the user's resolved preferences.
type Settings struct {
	DistanceUnit string   `json:"distance_unit"`
	Abbreviation string   `json:"abbreviation"`
	Vehicle      *Vehicle `json:"vehicle"`
}

// Pagination describes one page of a list response.
type Pagination struct {
	Limit int   `json:"limit"`
	Skip  int   `json:"skip"`
	Total int64 `json:"total"`
}

// TripList is the paged list response.
type TripList struct {
	Data       []Trip     `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Session describes a tracking session.
type Session struct {
	ID             uuid.UUID     `json:"id"`
	Mode           string        `json:"mode"`
	State          string        `json:"state"`
	Hints          capture.Hints `json:"hints"`
	StartTimestamp time.Time     `json:"start_timestamp"`
	DistanceMeters float64       `json:"distance_meters"`
	Waypoints      int           `json:"waypoints"`
}

// TripSummary is the end-of-flow view of a trip.
type TripSummary struct {
	Saved bool `json:"saved"`
	Trip  Trip `json:"trip"`
}

func tripToResponse(t *domain.Trip) Trip {
	out := Trip{
		ID:             t.ID,
		LogType:        t.LogType().String(),
		Mode:           t.Mode().String(),
		ModeImage:      t.Mode().ImageName(),
		StartTimestamp: t.StartTimestamp,
		EndTimestamp:   t.EndTimestamp,
		DistanceMeters: t.Meters(),
		Pending:        t.Pending,
		Vehicle:        vehicleToResponse(t.Vehicle),
	}
	if t.Category != nil {
		c := t.Category.String()
		out.Category = &c
	}
	if t.FuelPrice != nil {
		out.FuelPrice = fuelPriceToResponse(*t.FuelPrice)
	}
	if money, ok := t.MoneySaved(); ok {
		s := money.StringFixed(2)
		out.MoneySaved = &s
	}
	if gallons, ok := t.FuelSaved(); ok {
		out.FuelSavedGallons = &gallons
	}
	for _, w := range t.Waypoints {
		out.Waypoints = append(out.Waypoints, Waypoint{
			Latitude:           w.Latitude,
			Longitude:          w.Longitude,
			Altitude:           w.Altitude,
			HorizontalAccuracy: w.HorizontalAccuracy,
			VerticalAccuracy:   w.VerticalAccuracy,
			Speed:              w.Speed,
			Course:             w.Course,
			Timestamp:          w.Timestamp,
		})
	}
	return out
}

func fuelPriceToResponse(p domain.FuelPrice) *FuelPrice {
	return &FuelPrice{
		SeriesID:  p.SeriesID,
		StartDate: p.StartDate.Format(time.DateOnly),
		Price:     p.Price.StringFixed(2),
	}
}

func vehicleToResponse(v *domain.Vehicle) *Vehicle {
	if v == nil {
		return nil
	}
	return &Vehicle{
		ID:           v.ID,
		Year:         v.Year,
		Make:         v.Make,
		Model:        v.Model,
		Description:  v.DisplayDescription(),
		EPAVehicleID: v.EPAVehicleID,
		CombinedMPG:  v.CombinedMPG,
	}
}

func settingsToResponse(s store.Settings) Settings {
	return Settings{
		DistanceUnit: s.DistanceUnit.String(),
		Abbreviation: s.DistanceUnit.Abbreviation(),
		Vehicle:      vehicleToResponse(s.Vehicle),
	}
}

func sessionToResponse(s *capture.Session) Session {
	p := s.Capture.Snapshot()
	return Session{
		ID:             s.ID,
		Mode:           s.Capture.Mode().String(),
		State:          s.Capture.State().String(),
		Hints:          s.Source.Hints(),
		StartTimestamp: s.Capture.Trip().StartTimestamp,
		DistanceMeters: p.Meters,
		Waypoints:      p.Waypoints,
	}
}

func summaryToResponse(s *capture.Summary) TripSummary {
	trip, saved := s.Snapshot()
	return TripSummary{Saved: saved, Trip: tripToResponse(&trip)}
}
