package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/config"
	"github.com/pkordes/carless/internal/events"
	"github.com/pkordes/carless/internal/fuel"
	"github.com/pkordes/carless/internal/handler"
	"github.com/pkordes/carless/internal/middleware"
	"github.com/pkordes/carless/internal/repo"
	"github.com/pkordes/carless/internal/service"
	"github.com/pkordes/carless/internal/store"
	"github.com/pkordes/carless/spec"
)

const shutdownGrace = 15 * time.Second

func newServeCmd(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, newLogger(cfg.LogLevel))
		},
	}
}

// serve wires every store and flow, then runs the HTTP server until ctx is
// cancelled. Requests that arrive while the database is still being migrated
// wait on the gateway instead of failing.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	// --- Database ---------------------------------------------------------
	// pgxpool.New does not open connections; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	// --- Trip events ------------------------------------------------------
	var notifier store.Notifier
	if cfg.AMQPURL != "" {
		pub, conn, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return err
		}
		defer conn.Close()
		notifier = pub
		logger.Info("trip events enabled", "exchange", cfg.AMQPExchange)
	}

	// --- Persistence gateway ----------------------------------------------
	vehicles := repo.NewVehicleRepo(pool)
	gateway := store.NewGateway(repo.NewTripRepo(pool), vehicles, repo.NewSettingRepo(pool), store.Options{
		Retry:    store.RetryPolicy{MaxAttempts: cfg.SaveMaxAttempts, Backoff: cfg.SaveRetryBackoff},
		Notifier: notifier,
		Logger:   logger,
	})

	// --- Fuel prices ------------------------------------------------------
	prices := repo.NewFuelPriceRepo(pool)
	var (
		finder fuel.Finder = fuel.NewRepoFinder(prices)
		cache  handler.FuelCache
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		cached := fuel.NewCachedFinder(finder, rdb, cfg.FuelCacheTTL, logger)
		finder, cache = cached, cached
		logger.Info("fuel price cache enabled", "ttl", cfg.FuelCacheTTL)
	}

	// --- Tracking checkpoints ---------------------------------------------
	checkpoints, err := capture.OpenSQLiteCheckpoints(ctx, cfg.CheckpointPath)
	if err != nil {
		return err
	}
	defer checkpoints.Close()
	tracker := capture.NewRegistry(gateway, capture.RegistryOptions{Checkpoints: checkpoints, Logger: logger})

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID, RealIP, Logger, Recoverer,
	// CORS, body limit. Recoverer turns panics into HTTP 500.
	srv := handler.NewServer(handler.Deps{
		Trips:      service.NewTripService(gateway),
		Export:     service.NewExportService(gateway),
		Settings:   service.NewSettingsService(gateway),
		Vehicles:   service.NewVehicleService(gateway, vehicles),
		Tracker:    tracker,
		Manual:     manualFactory(gateway, finder, cfg.FuelLookupTimeout, logger),
		FuelPrices: prices,
		FuelCache:  cache,
		OpenAPI:    spec.OpenAPI,
		Logger:     logger,

		AllowedOrigins: cfg.CORSOrigins,
	})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Mount("/", srv.Routes())

	// --- HTTP Server ------------------------------------------------------
	// WriteTimeout stays zero: location streams are long-lived.
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Open the store in the background. Traffic is accepted at once and
	// queues on the gateway until the migrations are done.
	g.Go(func() error {
		err := gateway.Open(gctx, func(ctx context.Context) error {
			if err := pool.Ping(ctx); err != nil {
				return fmt.Errorf("ping database: %w", err)
			}
			return migrate(ctx, pool, migrateUp)
		})
		if err != nil {
			return err
		}
		logger.Info("database ready")

		n, err := tracker.Restore(gctx)
		if err != nil {
			logger.Warn("tracking checkpoints not restored", "error", err)
		} else if n > 0 {
			logger.Info("resumed tracking sessions", "count", n)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("server starting", "addr", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown: give in-flight requests up to shutdownGrace once
	// a signal arrives or either task above fails.
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return httpSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// manualFactory builds a fresh manual entry form per request, preset to the
// user's distance unit.
func manualFactory(gw *store.Gateway, finder fuel.Finder, timeout time.Duration, logger *slog.Logger) handler.ManualFactory {
	return func(ctx context.Context) (*capture.ManualCapture, error) {
		unit, err := gw.DefaultDistanceUnit(ctx)
		if err != nil {
			return nil, err
		}
		return capture.NewManualCapture(gw, unit, capture.ManualOptions{
			Finder:      finder,
			FuelTimeout: timeout,
			Logger:      logger,
		}), nil
	}
}
