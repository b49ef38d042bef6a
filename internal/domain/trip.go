// Package domain contains the core data types for the CarLess trip log.
// It is imported by every other internal package (repo, store, capture,
// service, handler) and depends only on uuid and decimal.
package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trip is one logged commute, entered manually or tracked by GPS.
// LogType and Mode are fixed when the trip is created. Distance is stored in
// meters regardless of the unit it was entered in.
type Trip struct {
	ID uuid.UUID

	logType  LogType
	mode     Mode
	distance float64

	StartTimestamp time.Time
	EndTimestamp   *time.Time // set only when a tracked trip is stopped
	Category       *Category  // manual trips only
	Pending        bool

	// FuelPrice is the fuel-price snapshot as of StartTimestamp, nil when the
	// lookup failed or was never made.
	FuelPrice *FuelPrice

	// Vehicle is the reference vehicle savings are computed against.
	Vehicle *Vehicle

	Waypoints []Waypoint

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTrip returns an empty trip with zero distance.
func NewTrip(id uuid.UUID, logType LogType, mode Mode) *Trip {
	return &Trip{ID: id, logType: logType, mode: mode}
}

// LogType reports how the trip was captured.
func (t *Trip) LogType() LogType { return t.logType }

// Mode reports the trip's mode of transportation.
func (t *Trip) Mode() Mode { return t.mode }

// Meters returns the stored distance in meters.
func (t *Trip) Meters() float64 { return t.distance }

// SetDistance stores value, expressed in unit, as meters. Any prior distance
// is overwritten.
func (t *Trip) SetDistance(value float64, unit LengthUnit) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%w: distance must be a non-negative number", ErrValidation)
	}
	t.distance = ToMeters(value, unit)
	return nil
}

// AddMeters extends the distance by a non-negative delta.
func (t *Trip) AddMeters(delta float64) error {
	if math.IsNaN(delta) || math.IsInf(delta, 0) || delta < 0 {
		return fmt.Errorf("%w: distance delta must be a non-negative number", ErrValidation)
	}
	t.distance += delta
	return nil
}

// DistanceIn returns the stored distance converted into unit.
func (t *Trip) DistanceIn(unit LengthUnit) float64 {
	return FromMeters(t.distance, unit)
}

// Stop sets the end timestamp. It must not precede the start.
func (t *Trip) Stop(at time.Time) error {
	if at.Before(t.StartTimestamp) {
		return fmt.Errorf("%w: end timestamp precedes start timestamp", ErrValidation)
	}
	t.EndTimestamp = &at
	return nil
}

// AddWaypoint attaches a sample to the trip. Waypoints are never edited once added.
func (t *Trip) AddWaypoint(w Waypoint) {
	w.TripID = t.ID
	t.Waypoints = append(t.Waypoints, w)
}

// MoneySaved returns fuelPrice * miles / combinedMPG rounded half-up to cents.
// The second result is false when the fuel price or the vehicle's combined
// fuel economy is unknown.
func (t *Trip) MoneySaved() (decimal.Decimal, bool) {
	if t.FuelPrice == nil {
		return decimal.Zero, false
	}
	mpg, ok := t.Vehicle.MPG()
	if !ok {
		return decimal.Zero, false
	}
	// Micro-mile precision strips the float noise of the meters round trip.
	miles := decimal.NewFromFloat(t.DistanceIn(Mile)).Round(6)
	return t.FuelPrice.Price.Mul(miles).Div(decimal.NewFromFloat(mpg)).Round(2), true
}

// FuelSaved returns the gallons of fuel not burned, or false when the
// vehicle's combined fuel economy is unknown.
func (t *Trip) FuelSaved() (float64, bool) {
	mpg, ok := t.Vehicle.MPG()
	if !ok {
		return 0, false
	}
	return t.DistanceIn(Mile) / mpg, true
}

// Validate checks the invariants every persisted trip must satisfy.
func (t *Trip) Validate() error {
	if t.ID == uuid.Nil {
		return fmt.Errorf("%w: id is required", ErrValidation)
	}
	if _, err := ParseLogType(string(t.logType)); err != nil {
		return err
	}
	if !t.mode.Valid() {
		return fmt.Errorf("%w: mode is required", ErrValidation)
	}
	if t.distance < 0 || math.IsNaN(t.distance) || math.IsInf(t.distance, 0) {
		return fmt.Errorf("%w: distance must be non-negative", ErrValidation)
	}
	if t.StartTimestamp.IsZero() {
		return fmt.Errorf("%w: start timestamp is required", ErrValidation)
	}
	if t.EndTimestamp != nil && t.EndTimestamp.Before(t.StartTimestamp) {
		return fmt.Errorf("%w: end timestamp precedes start timestamp", ErrValidation)
	}
	if t.Category != nil && t.logType != LogManual {
		return fmt.Errorf("%w: category applies to manual trips only", ErrValidation)
	}
	return nil
}

// Waypoint is one GPS sample belonging to a tracked trip.
type Waypoint struct {
	ID                 uuid.UUID
	TripID             uuid.UUID
	Latitude           float64
	Longitude          float64
	Altitude           float64
	HorizontalAccuracy float64
	VerticalAccuracy   float64
	Speed              float64
	Course             float64
	Timestamp          time.Time
}
