package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/pkordes/carless/internal/domain"
)

// csvHeaders defines the column names written as the first row of any CSV export.
var csvHeaders = []string{
	"trip_id", "log_type", "mode", "category", "start_timestamp", "end_timestamp",
	"distance", "vehicle", "fuel_price", "money_saved", "fuel_saved_gallons", "waypoints",
}

// ExportRow is the JSON form of one export line. Unknown values are omitted.
type ExportRow struct {
	TripID           string     `json:"trip_id"`
	LogType          string     `json:"log_type"`
	Mode             string     `json:"mode"`
	Category         string     `json:"category,omitempty"`
	StartTimestamp   time.Time  `json:"start_timestamp"`
	EndTimestamp     *time.Time `json:"end_timestamp,omitempty"`
	Distance         string     `json:"distance"`
	Vehicle          string     `json:"vehicle,omitempty"`
	FuelPrice        string     `json:"fuel_price,omitempty"`
	MoneySaved       string     `json:"money_saved,omitempty"`
	FuelSavedGallons string     `json:"fuel_saved_gallons,omitempty"`
	Waypoints        int        `json:"waypoints"`
}

// GetExport handles GET /trips/export.
// It returns every logged trip as a flat table with display-ready values.
// Use ?format=csv to receive CSV; default is JSON.
func (s *Server) GetExport(w http.ResponseWriter, r *http.Request) {
	var format *string
	if err := bindFormat(r, &format); err != nil {
		s.writeError(w, r, err)
		return
	}

	rows, err := s.export.Export(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if format != nil && *format == "csv" {
		writeCSV(w, rows)
		return
	}

	out := make([]ExportRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, ExportRow{
			TripID:           row.TripID,
			LogType:          row.LogType,
			Mode:             row.Mode,
			Category:         row.Category,
			StartTimestamp:   row.StartTimestamp,
			EndTimestamp:     row.EndTimestamp,
			Distance:         row.Distance,
			Vehicle:          row.Vehicle,
			FuelPrice:        row.FuelPrice,
			MoneySaved:       row.MoneySaved,
			FuelSavedGallons: row.FuelSaved,
			Waypoints:        row.Waypoints,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// writeCSV encodes rows as an attachment, one trip per line.
func writeCSV(w http.ResponseWriter, rows []domain.ExportRow) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)

	//nolint:errcheck // bytes.Buffer.Write never returns an error.
	cw.Write(csvHeaders)
	for _, r := range rows {
		//nolint:errcheck
		cw.Write([]string{
			r.TripID,
			r.LogType,
			r.Mode,
			r.Category,
			r.StartTimestamp.UTC().Format(time.RFC3339),
			formatOptionalTime(r.EndTimestamp),
			r.Distance,
			r.Vehicle,
			r.FuelPrice,
			r.MoneySaved,
			r.FuelSaved,
			strconv.Itoa(r.Waypoints),
		})
	}
	cw.Flush()

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="carless-trips.csv"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	buf.WriteTo(w)
}

// formatOptionalTime returns the RFC3339 representation of t, or "" if t is nil.
func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
