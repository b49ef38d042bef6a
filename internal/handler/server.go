// Package handler implements the HTTP surface of the CarLess API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, tracking.go, etc.) but share the same Server
// struct so they can access its dependencies. Handlers only translate between
// HTTP and the capture flows and services; no business rules live here.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/service"
	"github.com/pkordes/carless/internal/store"
)

// TripServicer defines the trip queries the handler depends on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	List(ctx context.Context, p domain.PaginationParams) (service.TripPage, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ExportServicer produces the flat trip log export.
type ExportServicer interface {
	Export(ctx context.Context) ([]domain.ExportRow, error)
}

// SettingsServicer reads and writes user preferences.
type SettingsServicer interface {
	Get(ctx context.Context) (store.Settings, error)
	SetDistanceUnit(ctx context.Context, raw string) (store.Settings, error)
}

// VehicleServicer manages the default reference vehicle.
type VehicleServicer interface {
	SaveDefaultVehicle(ctx context.Context, in service.VehicleInput) (domain.Vehicle, error)
	ClearDefaultVehicle(ctx context.Context) error
}

// Tracker owns the live tracking sessions. *capture.Registry implements it.
type Tracker interface {
	Start(ctx context.Context, mode domain.Mode, authorized bool) (*capture.Session, error)
	Get(id uuid.UUID) (*capture.Session, error)
	Push(ctx context.Context, id uuid.UUID, sample capture.Sample) (capture.Progress, error)
	Stop(ctx context.Context, id uuid.UUID, confirm capture.Confirmer) (*capture.Summary, error)
	Save(ctx context.Context, id uuid.UUID) (*domain.Trip, error)
	Discard(ctx context.Context, id uuid.UUID) error
}

// FuelPriceWriter stores weekly fuel prices.
type FuelPriceWriter interface {
	Upsert(ctx context.Context, p domain.FuelPrice) (domain.FuelPrice, error)
}

// FuelCache drops cached lookups after a price is written. Optional.
type FuelCache interface {
	Forget(ctx context.Context, dates ...time.Time) error
}

// ManualFactory returns a fresh manual entry form set up with the user's
// distance unit and the fuel price source.
type ManualFactory func(ctx context.Context) (*capture.ManualCapture, error)

// Deps carries everything the Server needs. OpenAPI and FuelCache are
// optional; without OpenAPI the /openapi.yaml route is not mounted.
type Deps struct {
	Trips      TripServicer
	Export     ExportServicer
	Settings   SettingsServicer
	Vehicles   VehicleServicer
	Tracker    Tracker
	Manual     ManualFactory
	FuelPrices FuelPriceWriter
	FuelCache  FuelCache
	OpenAPI    []byte
	Logger     *slog.Logger

	// AllowedOrigins are the browser origins allowed to open the location
	// stream. Clients that send no Origin header are always allowed.
	AllowedOrigins []string
}

// Server holds the handler dependencies.
type Server struct {
	trips    TripServicer
	export   ExportServicer
	settings SettingsServicer
	vehicles VehicleServicer
	tracker  Tracker
	manual   ManualFactory
	prices   FuelPriceWriter
	cache    FuelCache
	openapi  []byte
	log      *slog.Logger
	upgrader websocket.Upgrader
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		trips:    d.Trips,
		export:   d.Export,
		settings: d.Settings,
		vehicles: d.Vehicles,
		tracker:  d.Tracker,
		manual:   d.Manual,
		prices:   d.FuelPrices,
		cache:    d.FuelCache,
		openapi:  d.OpenAPI,
		log:      log,
		upgrader: newUpgrader(d.AllowedOrigins),
	}
}

// Routes returns the chi router for every endpoint. Cross-cutting middleware
// (request IDs, logging, CORS, body limits) is applied by the caller.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	if s.openapi != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}

	r.Route("/trips", func(r chi.Router) {
		r.Get("/", s.ListTrips)
		r.Get("/export", s.GetExport)
		r.Get("/manual/options", s.GetManualOptions)
		r.Post("/manual", s.CreateManualTrip)
		r.Get("/{id}", s.GetTrip)
		r.Delete("/{id}", s.DeleteTrip)
	})

	r.Route("/tracking", func(r chi.Router) {
		r.Post("/", s.StartTracking)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetTracking)
			r.Post("/locations", s.PushLocation)
			r.Get("/stream", s.StreamLocations)
			r.Post("/stop", s.StopTracking)
			r.Post("/save", s.SaveTracking)
			r.Post("/discard", s.DiscardTracking)
		})
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", s.GetSettings)
		r.Put("/distance-unit", s.PutDistanceUnit)
		r.Put("/vehicle", s.PutVehicle)
		r.Delete("/vehicle", s.DeleteVehicle)
	})

	r.Put("/fuel-prices", s.PutFuelPrice)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("not_found", "no route for "+r.Method+" "+r.URL.Path))
	})
	return r
}
