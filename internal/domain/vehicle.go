package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Vehicle is the car a user's carless trips replace. Savings are computed
// against its combined fuel economy.
type Vehicle struct {
	ID           uuid.UUID
	Year         int
	Make         string
	Model        string
	EPAVehicleID string
	CombinedMPG  *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MPG returns the combined fuel economy. It is safe to call on a nil vehicle;
// an unknown or non-positive value reports false.
func (v *Vehicle) MPG() (float64, bool) {
	if v == nil || v.CombinedMPG == nil || *v.CombinedMPG <= 0 {
		return 0, false
	}
	return *v.CombinedMPG, true
}

// DisplayDescription renders "Year Make Model".
func (v *Vehicle) DisplayDescription() string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprintf("%d %s %s", v.Year, v.Make, v.Model))
}

// Setting holds user preferences. There is at most one settings record.
type Setting struct {
	ID           uuid.UUID
	DistanceUnit LengthUnit
	VehicleID    *uuid.UUID
}

// FuelPrice is one weekly retail fuel price observation.
type FuelPrice struct {
	SeriesID  string
	StartDate time.Time
	Price     decimal.Decimal
}
