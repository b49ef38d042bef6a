package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/service"
	"github.com/pkordes/carless/internal/store"
)

func settingsGateway() (*mockGateway, *domain.LengthUnit) {
	unit := domain.Mile
	return &mockGateway{
		settings: func(context.Context) (store.Settings, error) {
			return store.Settings{DistanceUnit: unit}, nil
		},
		setDefaultDistanceUnit: func(_ context.Context, u domain.LengthUnit) error {
			unit = u
			return nil
		},
	}, &unit
}

func TestSettingsService_Get(t *testing.T) {
	gw, _ := settingsGateway()

	got, err := service.NewSettingsService(gw).Get(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.Mile, got.DistanceUnit)
	assert.Nil(t, got.Vehicle)
}

func TestSettingsService_SetDistanceUnit(t *testing.T) {
	for _, raw := range []string{"Kilometer", "km", " KM "} {
		t.Run(raw, func(t *testing.T) {
			gw, unit := settingsGateway()

			got, err := service.NewSettingsService(gw).SetDistanceUnit(context.Background(), raw)

			require.NoError(t, err)
			assert.Equal(t, domain.Kilometer, *unit)
			assert.Equal(t, domain.Kilometer, got.DistanceUnit)
		})
	}
}

func TestSettingsService_SetDistanceUnit_Rejected(t *testing.T) {
	for _, raw := range []string{"Meter", "furlong", ""} {
		t.Run(raw, func(t *testing.T) {
			gw, unit := settingsGateway()

			_, err := service.NewSettingsService(gw).SetDistanceUnit(context.Background(), raw)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Equal(t, domain.Mile, *unit, "nothing is written")
		})
	}
}
