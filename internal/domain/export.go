package domain

import "time"

// ExportRow is one line of the trip log export: a flat, denormalized view of
// a trip with its vehicle and savings resolved to display strings.
// Optional values are empty strings when unknown.
type ExportRow struct {
	TripID         string
	LogType        string
	Mode           string
	Category       string
	StartTimestamp time.Time
	EndTimestamp   *time.Time
	Distance       string // formatted in the user's unit, e.g. "3.1 mi"
	Vehicle        string // "Year Make Model"
	FuelPrice      string // "$3.38"
	MoneySaved     string // "$1.27"
	FuelSaved      string // gallons with 3 decimals
	Waypoints      int
}
