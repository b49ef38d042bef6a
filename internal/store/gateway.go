// Package store is the persistence gateway the capture flows talk to.
// It creates trips, tracks which of them have uncommitted changes, resolves
// the user's defaults, and commits trips durably. Flows never touch the
// repositories directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/repo"
)

// ErrClosed is returned by operations queued on a gateway whose store failed to open.
var ErrClosed = errors.New("store unavailable")

// Notifier is told about every trip that has been made durable.
type Notifier interface {
	TripSaved(ctx context.Context, trip *domain.Trip) error
}

// Options configures a Gateway. The zero value is usable.
type Options struct {
	Retry    RetryPolicy
	Notifier Notifier
	Logger   *slog.Logger
}

// Gateway is the persistence facade for trips, vehicles and settings.
// It is constructed explicitly by the entry point and passed to each flow.
//
// Operations that reach the durable store wait until Open has finished, so
// requests issued during start-up queue instead of failing.
type Gateway struct {
	trips    repo.TripRepo
	vehicles repo.VehicleRepo
	settings *SettingsCache
	retry    RetryPolicy
	notifier Notifier
	log      *slog.Logger

	ready   chan struct{}
	once    sync.Once
	openErr error

	mu      sync.Mutex
	pending map[uuid.UUID]*domain.Trip
}

// NewGateway wires a gateway over the repositories. Call Open before (or
// concurrently with) first use.
func NewGateway(trips repo.TripRepo, vehicles repo.VehicleRepo, settings repo.SettingRepo, opts Options) *Gateway {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{
		trips:    trips,
		vehicles: vehicles,
		settings: NewSettingsCache(settings, vehicles),
		retry:    opts.Retry,
		notifier: opts.Notifier,
		log:      log,
		ready:    make(chan struct{}),
		pending:  make(map[uuid.UUID]*domain.Trip),
	}
}

// Open runs the store initialisation (connectivity check, migrations) and
// releases every queued operation. A nil init marks the gateway ready at once.
// Only the first call has any effect.
func (g *Gateway) Open(ctx context.Context, init func(context.Context) error) error {
	g.once.Do(func() {
		if init != nil {
			g.openErr = init(ctx)
		}
		if g.openErr != nil {
			g.log.Error("store open failed", "error", g.openErr)
		}
		close(g.ready)
	})
	return g.openErr
}

// wait blocks until Open has completed or ctx is done.
func (g *Gateway) wait(ctx context.Context) error {
	select {
	case <-g.ready:
		if g.openErr != nil {
			return fmt.Errorf("%w: %v", ErrClosed, g.openErr)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// InitTrip creates an empty trip with zero distance and registers it in the
// pending-change set. Nothing is durable until Save.
func (g *Gateway) InitTrip(logType domain.LogType, mode domain.Mode) *domain.Trip {
	trip := domain.NewTrip(uuid.New(), logType, mode)

	g.mu.Lock()
	g.pending[trip.ID] = trip
	g.mu.Unlock()
	return trip
}

// Adopt registers an existing in-memory trip as pending, e.g. one restored
// from a tracking checkpoint.
func (g *Gateway) Adopt(trip *domain.Trip) {
	g.mu.Lock()
	g.pending[trip.ID] = trip
	g.mu.Unlock()
}

// Discard drops a trip from the pending-change set without persisting it.
func (g *Gateway) Discard(trip *domain.Trip) {
	g.mu.Lock()
	delete(g.pending, trip.ID)
	g.mu.Unlock()
}

// IsPending reports whether the trip has uncommitted changes.
func (g *Gateway) IsPending(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[id]
	return ok
}

// Save assigns the default vehicle when the trip has none, then commits the
// trip and its waypoints in one transaction under the retry policy.
// A commit failure is returned as *CommitError and the trip stays pending.
func (g *Gateway) Save(ctx context.Context, trip *domain.Trip) error {
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("store.Gateway.Save: %w", err)
	}
	if err := trip.Validate(); err != nil {
		return fmt.Errorf("store.Gateway.Save: %w", err)
	}

	if trip.Vehicle == nil {
		v, err := g.DefaultVehicle(ctx)
		if err != nil {
			return fmt.Errorf("store.Gateway.Save: %w", err)
		}
		trip.Vehicle = v
	}

	attempts, err := g.retry.do(ctx, func(ctx context.Context) error {
		return g.trips.Save(ctx, trip)
	})
	if err != nil {
		g.log.ErrorContext(ctx, "trip commit failed",
			"trip_id", trip.ID, "attempts", attempts, "error", err)
		return &CommitError{TripID: trip.ID, Attempts: attempts, Err: err}
	}

	g.mu.Lock()
	delete(g.pending, trip.ID)
	g.mu.Unlock()

	g.log.InfoContext(ctx, "trip saved",
		"trip_id", trip.ID,
		"log_type", trip.LogType(),
		"mode", trip.Mode(),
		"distance_m", trip.Meters(),
		"waypoints", len(trip.Waypoints))

	if g.notifier != nil {
		if err := g.notifier.TripSaved(ctx, trip); err != nil {
			g.log.WarnContext(ctx, "trip saved notification failed", "trip_id", trip.ID, "error", err)
		}
	}
	return nil
}

// FetchTrips returns committed trips ordered by start time descending.
// Trips still in the pending-change set are never included.
func (g *Gateway) FetchTrips(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error) {
	if err := g.wait(ctx); err != nil {
		return nil, fmt.Errorf("store.Gateway.FetchTrips: %w", err)
	}
	trips, err := g.trips.List(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("store.Gateway.FetchTrips: %w", err)
	}
	return trips, nil
}

// CountTrips returns the number of committed trips.
func (g *Gateway) CountTrips(ctx context.Context) (int64, error) {
	if err := g.wait(ctx); err != nil {
		return 0, fmt.Errorf("store.Gateway.CountTrips: %w", err)
	}
	n, err := g.trips.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("store.Gateway.CountTrips: %w", err)
	}
	return n, nil
}

// GetTrip returns a committed trip with its waypoints.
func (g *Gateway) GetTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	if err := g.wait(ctx); err != nil {
		return nil, fmt.Errorf("store.Gateway.GetTrip: %w", err)
	}
	trip, err := g.trips.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("store.Gateway.GetTrip: %w", err)
	}
	return trip, nil
}

// DeleteTrip removes a committed trip and its waypoints.
func (g *Gateway) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("store.Gateway.DeleteTrip: %w", err)
	}
	if err := g.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("store.Gateway.DeleteTrip: %w", err)
	}
	return nil
}

// CountTripsUsedByVehicle counts committed trips referencing v. A nil vehicle counts zero.
func (g *Gateway) CountTripsUsedByVehicle(ctx context.Context, v *domain.Vehicle) (int, error) {
	if v == nil {
		return 0, nil
	}
	if err := g.wait(ctx); err != nil {
		return 0, fmt.Errorf("store.Gateway.CountTripsUsedByVehicle: %w", err)
	}
	n, err := g.trips.CountByVehicle(ctx, v.ID)
	if err != nil {
		return 0, fmt.Errorf("store.Gateway.CountTripsUsedByVehicle: %w", err)
	}
	return n, nil
}

// Settings loads the settings snapshot through the cache.
func (g *Gateway) Settings(ctx context.Context) (Settings, error) {
	if err := g.wait(ctx); err != nil {
		return Settings{}, fmt.Errorf("store.Gateway.Settings: %w", err)
	}
	return g.settings.Load(ctx)
}

// DefaultDistanceUnit returns the user's display unit, Mile unless configured.
func (g *Gateway) DefaultDistanceUnit(ctx context.Context) (domain.LengthUnit, error) {
	s, err := g.Settings(ctx)
	if err != nil {
		return "", err
	}
	return s.DistanceUnit, nil
}

// DefaultVehicle returns the user's reference vehicle, or nil when none is configured.
func (g *Gateway) DefaultVehicle(ctx context.Context) (*domain.Vehicle, error) {
	s, err := g.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return s.Vehicle, nil
}

// SetDefaultDistanceUnit stores the display unit. Only user-selectable units are accepted.
func (g *Gateway) SetDefaultDistanceUnit(ctx context.Context, unit domain.LengthUnit) error {
	if !unit.UserSelectable() {
		return fmt.Errorf("store.Gateway.SetDefaultDistanceUnit: %w: unit %q is not selectable", domain.ErrValidation, unit)
	}
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("store.Gateway.SetDefaultDistanceUnit: %w", err)
	}
	err := g.settings.write(ctx, func(s *domain.Setting) { s.DistanceUnit = unit })
	if err != nil {
		return fmt.Errorf("store.Gateway.SetDefaultDistanceUnit: %w", err)
	}
	return nil
}

// SetDefaultVehicle points the settings at v; nil clears the default.
func (g *Gateway) SetDefaultVehicle(ctx context.Context, v *domain.Vehicle) error {
	if err := g.wait(ctx); err != nil {
		return fmt.Errorf("store.Gateway.SetDefaultVehicle: %w", err)
	}
	err := g.settings.write(ctx, func(s *domain.Setting) {
		if v == nil {
			s.VehicleID = nil
			return
		}
		id := v.ID
		s.VehicleID = &id
	})
	if err != nil {
		return fmt.Errorf("store.Gateway.SetDefaultVehicle: %w", err)
	}
	return nil
}

// Vehicles exposes the vehicle repository to the vehicle service.
func (g *Gateway) Vehicles() repo.VehicleRepo { return g.vehicles }
