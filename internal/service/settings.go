package service

import (
	"context"
	"fmt"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/store"
)

// SettingsStore is the settings side of the persistence gateway.
type SettingsStore interface {
	Settings(ctx context.Context) (store.Settings, error)
	SetDefaultDistanceUnit(ctx context.Context, unit domain.LengthUnit) error
}

// SettingsService reads and writes the user's preferences.
type SettingsService struct {
	store SettingsStore
}

// NewSettingsService constructs a SettingsService.
func NewSettingsService(s SettingsStore) *SettingsService {
	return &SettingsService{store: s}
}

// Get returns the resolved settings.
func (s *SettingsService) Get(ctx context.Context) (store.Settings, error) {
	out, err := s.store.Settings(ctx)
	if err != nil {
		return store.Settings{}, fmt.Errorf("service.SettingsService.Get: %w", err)
	}
	return out, nil
}

// SetDistanceUnit accepts a unit name or abbreviation. Only Mile and
// Kilometer may be chosen.
func (s *SettingsService) SetDistanceUnit(ctx context.Context, raw string) (store.Settings, error) {
	unit, err := domain.ParseLengthUnit(raw)
	if err != nil {
		return store.Settings{}, err
	}
	if !unit.UserSelectable() {
		return store.Settings{}, fmt.Errorf("%w: distance unit must be Mile or Kilometer", domain.ErrValidation)
	}
	if err := s.store.SetDefaultDistanceUnit(ctx, unit); err != nil {
		return store.Settings{}, fmt.Errorf("service.SettingsService.SetDistanceUnit: %w", err)
	}
	return s.Get(ctx)
}
