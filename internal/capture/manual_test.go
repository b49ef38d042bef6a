package capture_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/fuel"
)

func priceFinder(price string) fuel.Finder {
	return fuel.FinderFunc(func(_ context.Context, date time.Time) (domain.FuelPrice, error) {
		return domain.FuelPrice{SeriesID: "EMM_EPMR_PTE_NUS_DPG", StartDate: date, Price: decimal.RequireFromString(price)}, nil
	})
}

func failingFinder() fuel.Finder {
	return fuel.FinderFunc(func(context.Context, time.Time) (domain.FuelPrice, error) {
		return domain.FuelPrice{}, errors.New("price service unreachable")
	})
}

func newManual(gw capture.Gateway, finder fuel.Finder) *capture.ManualCapture {
	return capture.NewManualCapture(gw, domain.Mile, capture.ManualOptions{
		Finder:      finder,
		FuelTimeout: time.Second,
		Logger:      quietLogger(),
		Now:         clock(),
	})
}

func TestManualCapture_IncompleteFormCreatesNoTrip(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		mode     *domain.Mode
	}{
		{name: "no mode", distance: 3},
		{name: "zero distance", distance: 0, mode: ptr(domain.ModeBus)},
		{name: "negative distance", distance: -2, mode: ptr(domain.ModeBus)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := newFakeGateway()
			m := newManual(gw, priceFinder("3.50"))
			m.SetDistance(tc.distance, domain.Mile)
			if tc.mode != nil {
				require.NoError(t, m.Mode.Select(*tc.mode))
			}

			out, err := m.Save(context.Background())

			require.NoError(t, err)
			assert.Equal(t, capture.ManualEditing, out.State)
			assert.Equal(t, []capture.ManualState{capture.ManualValidating, capture.ManualEditing}, out.Path)
			assert.Nil(t, out.Summary)
			assert.Zero(t, gw.inits, "no trip is created for an incomplete form")
			assert.Equal(t, capture.ManualEditing, m.State())
		})
	}
}

func TestManualCapture_SavesWithFuelPrice(t *testing.T) {
	gw := newFakeGateway()
	m := newManual(gw, priceFinder("4.00"))
	m.SetDistance(12.5, domain.Kilometer)
	require.NoError(t, m.Mode.Select(domain.ModeBicycle))
	require.NoError(t, m.Category.Select(domain.CategoryWork))

	out, err := m.Save(context.Background())

	require.NoError(t, err)
	assert.Equal(t, capture.ManualDone, out.State)
	assert.Equal(t, []capture.ManualState{capture.ManualValidating, capture.ManualSaving, capture.ManualDone}, out.Path)
	assert.False(t, out.FuelLookupFailed())

	require.NotNil(t, out.Summary)
	assert.True(t, out.Summary.Saved())
	trip := out.Summary.Trip()
	assert.Equal(t, domain.LogManual, trip.LogType())
	assert.Equal(t, domain.ModeBicycle, trip.Mode())
	assert.InDelta(t, 12500, trip.Meters(), 1e-6)
	assert.False(t, trip.Pending)
	assert.Nil(t, trip.EndTimestamp)
	require.NotNil(t, trip.Category)
	assert.Equal(t, domain.CategoryWork, *trip.Category)
	assert.Equal(t, fixedNow, trip.StartTimestamp)
	require.NotNil(t, trip.FuelPrice)
	assert.Equal(t, "4", trip.FuelPrice.Price.String())
	assert.Len(t, gw.saved, 1)
}

func TestManualCapture_FuelLookupFailureStillSaves(t *testing.T) {
	gw := newFakeGateway()
	m := newManual(gw, failingFinder())
	m.SetDistance(2, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeWalk))

	out, err := m.Save(context.Background())

	require.NoError(t, err)
	assert.Equal(t, capture.ManualDone, out.State)
	assert.Equal(t, []capture.ManualState{
		capture.ManualValidating,
		capture.ManualSaving,
		capture.ManualFuelLookupFailed,
		capture.ManualSavingWithoutFuelData,
		capture.ManualDone,
	}, out.Path)
	assert.True(t, out.FuelLookupFailed())
	assert.Nil(t, out.Summary.Trip().FuelPrice)
	_, ok := out.Summary.MoneySaved()
	assert.False(t, ok)
	assert.Len(t, gw.saved, 1)
}

func TestManualCapture_NoFinderSavesWithoutFuel(t *testing.T) {
	gw := newFakeGateway()
	m := newManual(gw, nil)
	m.SetDistance(1, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeSubway))

	out, err := m.Save(context.Background())

	require.NoError(t, err)
	assert.True(t, out.FuelLookupFailed())
	assert.Len(t, gw.saved, 1)
}

func TestManualCapture_SlowLookupTimesOut(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	slow := fuel.FinderFunc(func(ctx context.Context, _ time.Time) (domain.FuelPrice, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return domain.FuelPrice{}, ctx.Err()
	})
	gw := newFakeGateway()
	m := capture.NewManualCapture(gw, domain.Mile, capture.ManualOptions{
		Finder:      slow,
		FuelTimeout: 10 * time.Millisecond,
		Logger:      quietLogger(),
		Now:         clock(),
	})
	m.SetDistance(4, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeTrain))

	out, err := m.Save(context.Background())

	require.NoError(t, err)
	assert.Equal(t, capture.ManualDone, out.State)
	assert.True(t, out.FuelLookupFailed())
}

func TestManualCapture_ResetsFormAfterSave(t *testing.T) {
	gw := newFakeGateway()
	m := newManual(gw, priceFinder("3.00"))
	m.SetDistance(5, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeBus))
	require.NoError(t, m.Category.Select(domain.CategoryShopping))

	_, err := m.Save(context.Background())
	require.NoError(t, err)

	_, hasMode := m.Mode.Selected()
	_, hasCat := m.Category.Selected()
	assert.False(t, hasMode)
	assert.False(t, hasCat)
	assert.Equal(t, capture.ManualEditing, m.State())

	// The reset form is incomplete, so a second save creates nothing.
	out, err := m.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, capture.ManualEditing, out.State)
	assert.Equal(t, 1, gw.inits)
}

func TestManualCapture_CommitFailureSurfaces(t *testing.T) {
	gw := newFakeGateway()
	gw.saveErr = errors.New("database is locked")
	m := newManual(gw, priceFinder("3.00"))
	m.SetDistance(5, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeRideshare))

	out, err := m.Save(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, gw.saveErr)
	assert.Equal(t, capture.ManualEditing, out.State)
	assert.Nil(t, out.Summary)
	assert.Equal(t, 1, gw.discards)

	// The form keeps its input so the user can try again.
	mode, ok := m.Mode.Selected()
	assert.True(t, ok)
	assert.Equal(t, domain.ModeRideshare, mode)
}

func TestManualCapture_CloseCancelsLookup(t *testing.T) {
	started := make(chan struct{})
	blocking := fuel.FinderFunc(func(ctx context.Context, _ time.Time) (domain.FuelPrice, error) {
		close(started)
		<-ctx.Done()
		return domain.FuelPrice{}, ctx.Err()
	})
	gw := newFakeGateway()
	m := capture.NewManualCapture(gw, domain.Mile, capture.ManualOptions{Finder: blocking, Logger: quietLogger(), Now: clock()})
	m.SetDistance(3, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeBicycle))

	type result struct {
		out capture.ManualOutcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := m.Save(context.Background())
		done <- result{out, err}
	}()

	<-started
	m.Close()

	select {
	case r := <-done:
		require.NoError(t, r.err)
		assert.True(t, r.out.FuelLookupFailed())
		assert.Nil(t, r.out.Summary.Trip().FuelPrice)
	case <-time.After(2 * time.Second):
		t.Fatal("Save did not return after Close")
	}

	_, err := m.Save(context.Background())
	assert.ErrorIs(t, err, domain.ErrConflict, "a closed form accepts no more saves")
}

func TestManualCapture_SavingsOnSummary(t *testing.T) {
	gw := newFakeGateway()
	m := newManual(gw, priceFinder("4.00"))
	m.SetDistance(50, domain.Mile)
	require.NoError(t, m.Mode.Select(domain.ModeBicycle))

	out, err := m.Save(context.Background())
	require.NoError(t, err)

	// The fake gateway does not assign a default vehicle, so attach one.
	mpg := 25.0
	out.Summary.Trip().Vehicle = &domain.Vehicle{CombinedMPG: &mpg}

	saved, ok := out.Summary.MoneySaved()
	require.True(t, ok)
	assert.Equal(t, "8.00", saved.StringFixed(2))
}

func ptr[T any](v T) *T { return &v }
