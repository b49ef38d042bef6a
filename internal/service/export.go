package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pkordes/carless/internal/domain"
)

// ExportStore is what the export needs from the persistence gateway.
type ExportStore interface {
	FetchTrips(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error)
	DefaultDistanceUnit(ctx context.Context) (domain.LengthUnit, error)
}

// ExportService assembles a flat export of the whole trip log.
type ExportService struct {
	store ExportStore
}

// NewExportService constructs an ExportService backed by the provided store.
func NewExportService(s ExportStore) *ExportService {
	return &ExportService{store: s}
}

// Export returns one ExportRow per trip, most recent first, with distances
// in the user's display unit.
func (s *ExportService) Export(ctx context.Context) ([]domain.ExportRow, error) {
	unit, err := s.store.DefaultDistanceUnit(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}
	trips, err := s.store.FetchTrips(ctx, domain.PaginationParams{})
	if err != nil {
		return nil, fmt.Errorf("service.ExportService.Export: %w", err)
	}

	rows := make([]domain.ExportRow, 0, len(trips))
	for _, t := range trips {
		rows = append(rows, exportRow(t, unit))
	}
	return rows, nil
}

func exportRow(t *domain.Trip, unit domain.LengthUnit) domain.ExportRow {
	row := domain.ExportRow{
		TripID:         t.ID.String(),
		LogType:        t.LogType().String(),
		Mode:           t.Mode().String(),
		StartTimestamp: t.StartTimestamp,
		EndTimestamp:   t.EndTimestamp,
		Distance:       domain.FormatDistance(t.DistanceIn(unit), unit),
		Vehicle:        t.Vehicle.DisplayDescription(),
		Waypoints:      len(t.Waypoints),
	}
	if t.Category != nil {
		row.Category = t.Category.String()
	}
	if t.FuelPrice != nil {
		row.FuelPrice = domain.FormatMoney(t.FuelPrice.Price)
	}
	if m, ok := t.MoneySaved(); ok {
		row.MoneySaved = domain.FormatMoney(m)
	}
	if g, ok := t.FuelSaved(); ok {
		row.FuelSaved = strconv.FormatFloat(g, 'f', 3, 64)
	}
	return row
}
