package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/fuel"
	"github.com/pkordes/carless/internal/handler"
	"github.com/pkordes/carless/internal/service"
	"github.com/pkordes/carless/internal/store"
)

// ---- test doubles ----------------------------------------------------------

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	list    func(ctx context.Context, p domain.PaginationParams) (service.TripPage, error)
	getByID func(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	delete  func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripServicer) List(ctx context.Context, p domain.PaginationParams) (service.TripPage, error) {
	return m.list(ctx, p)
}
func (m *mockTripServicer) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripServicer) Delete(ctx context.Context, id uuid.UUID) error { return m.delete(ctx, id) }

type mockExportServicer struct {
	export func(ctx context.Context) ([]domain.ExportRow, error)
}

func (m *mockExportServicer) Export(ctx context.Context) ([]domain.ExportRow, error) {
	return m.export(ctx)
}

type mockSettingsServicer struct {
	get             func(ctx context.Context) (store.Settings, error)
	setDistanceUnit func(ctx context.Context, raw string) (store.Settings, error)
}

func (m *mockSettingsServicer) Get(ctx context.Context) (store.Settings, error) { return m.get(ctx) }
func (m *mockSettingsServicer) SetDistanceUnit(ctx context.Context, raw string) (store.Settings, error) {
	return m.setDistanceUnit(ctx, raw)
}

type mockVehicleServicer struct {
	saveDefault  func(ctx context.Context, in service.VehicleInput) (domain.Vehicle, error)
	clearDefault func(ctx context.Context) error
}

func (m *mockVehicleServicer) SaveDefaultVehicle(ctx context.Context, in service.VehicleInput) (domain.Vehicle, error) {
	return m.saveDefault(ctx, in)
}
func (m *mockVehicleServicer) ClearDefaultVehicle(ctx context.Context) error {
	return m.clearDefault(ctx)
}

type mockFuelPriceWriter struct {
	upsert func(ctx context.Context, p domain.FuelPrice) (domain.FuelPrice, error)
}

func (m *mockFuelPriceWriter) Upsert(ctx context.Context, p domain.FuelPrice) (domain.FuelPrice, error) {
	return m.upsert(ctx, p)
}

type recordingCache struct {
	forgotten []time.Time
}

func (c *recordingCache) Forget(_ context.Context, dates ...time.Time) error {
	c.forgotten = append(c.forgotten, dates...)
	return nil
}

// memGateway is an in-memory capture.Gateway. Save validates like the real
// gateway and fails with saveErr when it is set.
type memGateway struct {
	mu      sync.Mutex
	saved   []*domain.Trip
	saveErr error
}

func (g *memGateway) InitTrip(lt domain.LogType, mode domain.Mode) *domain.Trip {
	return domain.NewTrip(uuid.New(), lt, mode)
}
func (g *memGateway) Adopt(*domain.Trip)   {}
func (g *memGateway) Discard(*domain.Trip) {}
func (g *memGateway) Save(_ context.Context, t *domain.Trip) error {
	if err := t.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.saveErr != nil {
		return g.saveErr
	}
	g.saved = append(g.saved, t)
	return nil
}

// compile-time checks: the doubles and the real types satisfy the handler interfaces.
var (
	_ handler.TripServicer     = (*mockTripServicer)(nil)
	_ handler.ExportServicer   = (*mockExportServicer)(nil)
	_ handler.SettingsServicer = (*mockSettingsServicer)(nil)
	_ handler.VehicleServicer  = (*mockVehicleServicer)(nil)
	_ handler.FuelPriceWriter  = (*mockFuelPriceWriter)(nil)
	_ handler.FuelCache        = (*recordingCache)(nil)
	_ capture.Gateway          = (*memGateway)(nil)

	_ handler.TripServicer     = (*service.TripService)(nil)
	_ handler.ExportServicer   = (*service.ExportService)(nil)
	_ handler.SettingsServicer = (*service.SettingsService)(nil)
	_ handler.VehicleServicer  = (*service.VehicleService)(nil)
	_ handler.Tracker          = (*capture.Registry)(nil)
	_ handler.FuelCache        = (*fuel.CachedFinder)(nil)
)

// ---- helpers ---------------------------------------------------------------

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHTTPHandler wires a Server over deps into its chi router, the same way
// main.go does in production.
func newHTTPHandler(deps handler.Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = quietLogger()
	}
	return handler.NewServer(deps).Routes()
}

// manualFactory builds forms over gw that enter distances in unit.
func manualFactory(gw capture.Gateway, unit domain.LengthUnit, finder fuel.Finder) handler.ManualFactory {
	return func(context.Context) (*capture.ManualCapture, error) {
		return capture.NewManualCapture(gw, unit, capture.ManualOptions{
			Finder:      finder,
			FuelTimeout: time.Second,
			Logger:      quietLogger(),
		}), nil
	}
}

func tripFixture(mode domain.Mode, miles float64) *domain.Trip {
	trip := domain.NewTrip(uuid.New(), domain.LogManual, mode)
	trip.StartTimestamp = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	//nolint:errcheck
	trip.SetDistance(miles, domain.Mile)
	return trip
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[handler.ErrorResponse](t, rec).Error.Code
}
