// Package service contains the business rules behind the CarLess HTTP API.
// Services validate inputs and orchestrate the persistence gateway. No SQL
// lives here; services depend on small interfaces that *store.Gateway satisfies.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/domain"
)

// TripStore is the read/delete side of the persistence gateway.
type TripStore interface {
	FetchTrips(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error)
	CountTrips(ctx context.Context) (int64, error)
	GetTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	DeleteTrip(ctx context.Context, id uuid.UUID) error
}

// TripPage is one page of the trip log plus the total number of trips.
type TripPage struct {
	Trips []*domain.Trip
	Total int64
}

// TripService serves the committed trip log.
type TripService struct {
	store TripStore
}

// NewTripService constructs a TripService backed by the provided store.
func NewTripService(s TripStore) *TripService {
	return &TripService{store: s}
}

// List returns one page of trips, most recent first.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) List(ctx context.Context, p domain.PaginationParams) (TripPage, error) {
	trips, err := s.store.FetchTrips(ctx, p)
	if err != nil {
		return TripPage{}, fmt.Errorf("service.TripService.List: %w", err)
	}
	total, err := s.store.CountTrips(ctx)
	if err != nil {
		return TripPage{}, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []*domain.Trip{}
	}
	return TripPage{Trips: trips, Total: total}, nil
}

// GetByID returns a single trip with its waypoints.
// Returns domain.ErrNotFound if it does not exist.
func (s *TripService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	trip, err := s.store.GetTrip(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.GetByID: %w", err)
	}
	return trip, nil
}

// Delete removes a trip and its waypoints.
// Returns domain.ErrNotFound if it does not exist.
func (s *TripService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteTrip(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}
