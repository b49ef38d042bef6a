package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/repo"
)

// Settings is a resolved snapshot of the user's preferences.
type Settings struct {
	DistanceUnit domain.LengthUnit
	Vehicle      *domain.Vehicle
}

// SettingsCache holds the resolved settings between an explicit Load and the
// next Invalidate. Nothing is fetched implicitly on field access.
type SettingsCache struct {
	settings repo.SettingRepo
	vehicles repo.VehicleRepo

	mu     sync.Mutex
	loaded bool
	value  Settings
}

// NewSettingsCache returns an empty cache.
func NewSettingsCache(settings repo.SettingRepo, vehicles repo.VehicleRepo) *SettingsCache {
	return &SettingsCache{settings: settings, vehicles: vehicles}
}

// Load returns the cached settings, reading them from the store if the cache
// is empty. When no settings record exists yet, one is persisted with Mile as
// the distance unit.
func (c *SettingsCache) Load(ctx context.Context) (Settings, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.value, nil
	}

	rec, err := c.settings.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		rec, err = c.settings.Upsert(ctx, domain.Setting{DistanceUnit: domain.Mile})
	}
	if err != nil {
		return Settings{}, fmt.Errorf("store.SettingsCache.Load: %w", err)
	}

	value := Settings{DistanceUnit: rec.DistanceUnit}
	if !value.DistanceUnit.Valid() {
		value.DistanceUnit = domain.Mile
	}
	if rec.VehicleID != nil {
		v, err := c.vehicles.GetByID(ctx, *rec.VehicleID)
		switch {
		case err == nil:
			value.Vehicle = &v
		case !errors.Is(err, domain.ErrNotFound):
			return Settings{}, fmt.Errorf("store.SettingsCache.Load: vehicle: %w", err)
		}
	}

	c.value = value
	c.loaded = true
	return value, nil
}

// Invalidate drops the cached snapshot; the next Load reads the store again.
func (c *SettingsCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.value = Settings{}
	c.mu.Unlock()
}

// write persists rec and invalidates the cache.
func (c *SettingsCache) write(ctx context.Context, mutate func(*domain.Setting)) error {
	rec, err := c.settings.Get(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if rec.DistanceUnit == "" {
		rec.DistanceUnit = domain.Mile
	}
	mutate(&rec)
	if _, err := c.settings.Upsert(ctx, rec); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}
