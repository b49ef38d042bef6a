package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/repo"
	"github.com/pkordes/carless/testutil"
)

// tripFixture returns a manual trip with sensible defaults for use in tests.
// Callers can override individual fields after calling this function.
func tripFixture(t *testing.T) *domain.Trip {
	t.Helper()
	trip := domain.NewTrip(uuid.New(), domain.LogManual, domain.ModeBicycle)
	require.NoError(t, trip.SetDistance(5, domain.Kilometer))
	trip.StartTimestamp = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	cat := domain.CategoryWork
	trip.Category = &cat
	return trip
}

func TestTripRepo_SaveAndGet(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()

	input := tripFixture(t)
	input.FuelPrice = &domain.FuelPrice{
		SeriesID:  "EMM_EPMR_PTE_NUS_DPG",
		StartDate: time.Date(2025, 5, 26, 0, 0, 0, 0, time.UTC),
		Price:     decimal.RequireFromString("3.459"),
	}

	require.NoError(t, r.Save(ctx, input))
	assert.False(t, input.CreatedAt.IsZero(), "CreatedAt should be set by DB")

	got, err := r.GetByID(ctx, input.ID)

	require.NoError(t, err)
	assert.Equal(t, input.ID, got.ID)
	assert.Equal(t, domain.LogManual, got.LogType())
	assert.Equal(t, domain.ModeBicycle, got.Mode())
	assert.InDelta(t, 5000.0, got.Meters(), 1e-9)
	assert.True(t, got.StartTimestamp.Equal(input.StartTimestamp))
	assert.Nil(t, got.EndTimestamp)
	require.NotNil(t, got.Category)
	assert.Equal(t, domain.CategoryWork, *got.Category)
	require.NotNil(t, got.FuelPrice)
	assert.True(t, input.FuelPrice.Price.Equal(got.FuelPrice.Price))
	assert.Equal(t, input.FuelPrice.SeriesID, got.FuelPrice.SeriesID)
	assert.Nil(t, got.Vehicle)
}

func TestTripRepo_Save_WithWaypointsAndVehicle(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()

	mpg := 31.0
	v, err := repo.NewVehicleRepo(tx).Create(ctx, domain.Vehicle{Year: 2014, Make: "Honda", Model: "Fit", CombinedMPG: &mpg})
	require.NoError(t, err)

	trip := domain.NewTrip(uuid.New(), domain.LogTracked, domain.ModeWalk)
	trip.StartTimestamp = time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	trip.Vehicle = &v
	for i := 0; i < 3; i++ {
		trip.AddWaypoint(domain.Waypoint{
			ID:        uuid.New(),
			Latitude:  40 + float64(i)*0.001,
			Longitude: -75,
			Timestamp: trip.StartTimestamp.Add(time.Duration(i) * time.Minute),
		})
	}
	require.NoError(t, r.Save(ctx, trip))

	// Saving again with one more waypoint only appends the new sample.
	trip.AddWaypoint(domain.Waypoint{ID: uuid.New(), Latitude: 40.01, Longitude: -75, Timestamp: trip.StartTimestamp.Add(time.Hour)})
	require.NoError(t, trip.Stop(trip.StartTimestamp.Add(time.Hour)))
	require.NoError(t, r.Save(ctx, trip))

	got, err := r.GetByID(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, got.Waypoints, 4)
	assert.InDelta(t, 40.0, got.Waypoints[0].Latitude, 1e-9)
	assert.InDelta(t, 40.01, got.Waypoints[3].Latitude, 1e-9)
	require.NotNil(t, got.EndTimestamp)
	require.NotNil(t, got.Vehicle)
	assert.Equal(t, "2014 Honda Fit", got.Vehicle.DisplayDescription())

	n, err := r.CountByVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTripRepo_GetByID_NotFound(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))

	_, err := r.GetByID(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestTripRepo_List_OrderAndPaging(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()

	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		trip := tripFixture(t)
		trip.StartTimestamp = base.AddDate(0, 0, i)
		require.NoError(t, r.Save(ctx, trip))
		ids = append(ids, trip.ID)
	}

	first, err := r.List(ctx, domain.PaginationParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first, 2)
	// Most recent start first: the fixture created last leads.
	assert.Equal(t, ids[2], first[0].ID)
	assert.Equal(t, ids[1], first[1].ID)

	second, err := r.List(ctx, domain.PaginationParams{Limit: 2, Skip: 2})
	require.NoError(t, err)
	require.NotEmpty(t, second)
	assert.Equal(t, ids[0], second[0].ID)

	total, err := r.Count(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, int64(3))
}

func TestTripRepo_List_ExcludesPending(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()

	before, err := r.Count(ctx)
	require.NoError(t, err)

	pending := tripFixture(t)
	pending.Pending = true
	pending.StartTimestamp = time.Date(2040, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, r.Save(ctx, pending))

	trips, err := r.List(ctx, domain.PaginationParams{})
	require.NoError(t, err)
	for _, trip := range trips {
		assert.NotEqual(t, pending.ID, trip.ID)
	}
	after, err := r.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	got, err := r.GetByID(ctx, pending.ID)
	require.NoError(t, err, "pending rows are still reachable by id")
	assert.True(t, got.Pending)
}

func TestTripRepo_Delete_CascadesWaypoints(t *testing.T) {
	tx := testutil.NewTx(t)
	r := repo.NewTripRepo(tx)
	ctx := context.Background()

	trip := tripFixture(t)
	trip.AddWaypoint(domain.Waypoint{ID: uuid.New(), Latitude: 1, Longitude: 1, Timestamp: trip.StartTimestamp})
	require.NoError(t, r.Save(ctx, trip))

	require.NoError(t, r.Delete(ctx, trip.ID))

	_, err := r.GetByID(ctx, trip.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound, "trip should be gone after delete")

	var remaining int
	require.NoError(t, tx.QueryRow(ctx, `SELECT count(*) FROM waypoints WHERE trip_id = $1`, trip.ID).Scan(&remaining))
	assert.Zero(t, remaining)
}

func TestTripRepo_Delete_NotFound(t *testing.T) {
	r := repo.NewTripRepo(testutil.NewTx(t))

	err := r.Delete(context.Background(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}
