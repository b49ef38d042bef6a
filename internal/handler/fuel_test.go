package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/handler"
)

func TestPutFuelPrice(t *testing.T) {
	var got domain.FuelPrice
	writer := &mockFuelPriceWriter{
		upsert: func(_ context.Context, p domain.FuelPrice) (domain.FuelPrice, error) {
			got = p
			return p, nil
		},
	}
	cache := &recordingCache{}
	h := newHTTPHandler(handler.Deps{FuelPrices: writer, FuelCache: cache})

	rec := do(t, h, http.MethodPut, "/fuel-prices", map[string]any{
		"series_id": "EMM_EPMR_PTE_NUS_DPG", "start_date": "2025-06-02", "price": "3.459",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "EMM_EPMR_PTE_NUS_DPG", got.SeriesID)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), got.StartDate)
	assert.Equal(t, "3.459", got.Price.String())

	body := decode[handler.FuelPrice](t, rec)
	assert.Equal(t, "2025-06-02", body.StartDate)
	assert.Equal(t, "3.46", body.Price)

	require.Len(t, cache.forgotten, 7, "every day of the price week is dropped from the cache")
	assert.Equal(t, got.StartDate, cache.forgotten[0])
	assert.Equal(t, time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC), cache.forgotten[6])
}

func TestPutFuelPrice_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing series", map[string]any{"start_date": "2025-06-02", "price": "3.45"}},
		{"bad date", map[string]any{"series_id": "S", "start_date": "06/02/2025", "price": "3.45"}},
		{"zero price", map[string]any{"series_id": "S", "start_date": "2025-06-02", "price": "0"}},
		{"negative price", map[string]any{"series_id": "S", "start_date": "2025-06-02", "price": -1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			writer := &mockFuelPriceWriter{
				upsert: func(context.Context, domain.FuelPrice) (domain.FuelPrice, error) {
					t.Fatal("repo must not be called")
					return domain.FuelPrice{}, nil
				},
			}

			rec := do(t, newHTTPHandler(handler.Deps{FuelPrices: writer}), http.MethodPut, "/fuel-prices", tc.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}
