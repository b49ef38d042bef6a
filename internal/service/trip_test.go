package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/service"
	"github.com/pkordes/carless/internal/store"
)

// mockGateway is a hand-written test double for the gateway interfaces the
// services consume. Each method is a function field; set only the ones your
// test needs.
type mockGateway struct {
	fetchTrips              func(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error)
	countTrips              func(ctx context.Context) (int64, error)
	getTrip                 func(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	deleteTrip              func(ctx context.Context, id uuid.UUID) error
	defaultDistanceUnit     func(ctx context.Context) (domain.LengthUnit, error)
	defaultVehicle          func(ctx context.Context) (*domain.Vehicle, error)
	setDefaultVehicle       func(ctx context.Context, v *domain.Vehicle) error
	countTripsUsedByVehicle func(ctx context.Context, v *domain.Vehicle) (int, error)
	settings                func(ctx context.Context) (store.Settings, error)
	setDefaultDistanceUnit  func(ctx context.Context, unit domain.LengthUnit) error
}

func (m *mockGateway) FetchTrips(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error) {
	return m.fetchTrips(ctx, p)
}
func (m *mockGateway) CountTrips(ctx context.Context) (int64, error) { return m.countTrips(ctx) }
func (m *mockGateway) GetTrip(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	return m.getTrip(ctx, id)
}
func (m *mockGateway) DeleteTrip(ctx context.Context, id uuid.UUID) error { return m.deleteTrip(ctx, id) }
func (m *mockGateway) DefaultDistanceUnit(ctx context.Context) (domain.LengthUnit, error) {
	return m.defaultDistanceUnit(ctx)
}
func (m *mockGateway) DefaultVehicle(ctx context.Context) (*domain.Vehicle, error) {
	return m.defaultVehicle(ctx)
}
func (m *mockGateway) SetDefaultVehicle(ctx context.Context, v *domain.Vehicle) error {
	return m.setDefaultVehicle(ctx, v)
}
func (m *mockGateway) CountTripsUsedByVehicle(ctx context.Context, v *domain.Vehicle) (int, error) {
	return m.countTripsUsedByVehicle(ctx, v)
}
func (m *mockGateway) Settings(ctx context.Context) (store.Settings, error) { return m.settings(ctx) }
func (m *mockGateway) SetDefaultDistanceUnit(ctx context.Context, unit domain.LengthUnit) error {
	return m.setDefaultDistanceUnit(ctx, unit)
}

// compile-time checks: mockGateway must satisfy every store interface.
var (
	_ service.TripStore     = (*mockGateway)(nil)
	_ service.ExportStore   = (*mockGateway)(nil)
	_ service.VehicleStore  = (*mockGateway)(nil)
	_ service.SettingsStore = (*mockGateway)(nil)
	_ service.TripStore     = (*store.Gateway)(nil)
	_ service.ExportStore   = (*store.Gateway)(nil)
	_ service.VehicleStore  = (*store.Gateway)(nil)
	_ service.SettingsStore = (*store.Gateway)(nil)
)

// ---- helpers ---------------------------------------------------------------

func tripFixture(t *testing.T, mode domain.Mode, miles float64) *domain.Trip {
	t.Helper()
	trip := domain.NewTrip(uuid.New(), domain.LogManual, mode)
	trip.StartTimestamp = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, trip.SetDistance(miles, domain.Mile))
	return trip
}

// ---- List ------------------------------------------------------------------

func TestTripService_List(t *testing.T) {
	trips := []*domain.Trip{tripFixture(t, domain.ModeBus, 3), tripFixture(t, domain.ModeWalk, 1)}
	var gotParams domain.PaginationParams
	gw := &mockGateway{
		fetchTrips: func(_ context.Context, p domain.PaginationParams) ([]*domain.Trip, error) {
			gotParams = p
			return trips, nil
		},
		countTrips: func(context.Context) (int64, error) { return 42, nil },
	}
	svc := service.NewTripService(gw)

	page, err := svc.List(context.Background(), domain.PaginationParams{Limit: 2, Skip: 4})

	require.NoError(t, err)
	assert.Len(t, page.Trips, 2)
	assert.Equal(t, int64(42), page.Total)
	assert.Equal(t, domain.PaginationParams{Limit: 2, Skip: 4}, gotParams)
}

func TestTripService_List_EmptyIsNonNil(t *testing.T) {
	gw := &mockGateway{
		fetchTrips: func(context.Context, domain.PaginationParams) ([]*domain.Trip, error) { return nil, nil },
		countTrips: func(context.Context) (int64, error) { return 0, nil },
	}

	page, err := service.NewTripService(gw).List(context.Background(), domain.PaginationParams{Limit: 20})

	require.NoError(t, err)
	assert.NotNil(t, page.Trips)
	assert.Empty(t, page.Trips)
}

func TestTripService_List_StoreError(t *testing.T) {
	storeErr := errors.New("db exploded")
	gw := &mockGateway{
		fetchTrips: func(context.Context, domain.PaginationParams) ([]*domain.Trip, error) { return nil, storeErr },
	}

	_, err := service.NewTripService(gw).List(context.Background(), domain.PaginationParams{})

	assert.ErrorIs(t, err, storeErr)
}

// ---- GetByID ---------------------------------------------------------------

func TestTripService_GetByID_Found(t *testing.T) {
	want := tripFixture(t, domain.ModeTrain, 20)
	gw := &mockGateway{
		getTrip: func(_ context.Context, id uuid.UUID) (*domain.Trip, error) {
			assert.Equal(t, want.ID, id)
			return want, nil
		},
	}

	got, err := service.NewTripService(gw).GetByID(context.Background(), want.ID)

	require.NoError(t, err)
	assert.Same(t, want, got)
}

func TestTripService_GetByID_NotFound(t *testing.T) {
	gw := &mockGateway{
		getTrip: func(context.Context, uuid.UUID) (*domain.Trip, error) { return nil, domain.ErrNotFound },
	}

	_, err := service.NewTripService(gw).GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- Delete ----------------------------------------------------------------

func TestTripService_Delete(t *testing.T) {
	id := uuid.New()
	var deleted uuid.UUID
	gw := &mockGateway{
		deleteTrip: func(_ context.Context, got uuid.UUID) error {
			deleted = got
			return nil
		},
	}

	require.NoError(t, service.NewTripService(gw).Delete(context.Background(), id))
	assert.Equal(t, id, deleted)
}

func TestTripService_Delete_NotFound(t *testing.T) {
	gw := &mockGateway{
		deleteTrip: func(context.Context, uuid.UUID) error { return domain.ErrNotFound },
	}

	err := service.NewTripService(gw).Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
