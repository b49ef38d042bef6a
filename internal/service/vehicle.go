package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/repo"
)

// VehicleStore is the settings side of the persistence gateway that the
// vehicle rules need.
type VehicleStore interface {
	DefaultVehicle(ctx context.Context) (*domain.Vehicle, error)
	SetDefaultVehicle(ctx context.Context, v *domain.Vehicle) error
	CountTripsUsedByVehicle(ctx context.Context, v *domain.Vehicle) (int, error)
}

// VehicleInput is the user's description of their reference vehicle.
type VehicleInput struct {
	Year         int
	Make         string
	Model        string
	EPAVehicleID string
	CombinedMPG  *float64
}

// VehicleService manages the default reference vehicle.
type VehicleService struct {
	store    VehicleStore
	vehicles repo.VehicleRepo
}

// NewVehicleService constructs a VehicleService.
func NewVehicleService(s VehicleStore, vehicles repo.VehicleRepo) *VehicleService {
	return &VehicleService{store: s, vehicles: vehicles}
}

// SaveDefaultVehicle stores in as the user's default vehicle.
//
// Trips keep the vehicle they were saved with, so a default that trips
// already reference is never edited: a new vehicle is created and becomes
// the default instead. An unreferenced default is updated in place.
func (s *VehicleService) SaveDefaultVehicle(ctx context.Context, in VehicleInput) (domain.Vehicle, error) {
	if err := validateVehicle(in); err != nil {
		return domain.Vehicle{}, err
	}

	current, err := s.store.DefaultVehicle(ctx)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.SaveDefaultVehicle: %w", err)
	}
	used, err := s.store.CountTripsUsedByVehicle(ctx, current)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.SaveDefaultVehicle: %w", err)
	}

	v := domain.Vehicle{
		Year:         in.Year,
		Make:         strings.TrimSpace(in.Make),
		Model:        strings.TrimSpace(in.Model),
		EPAVehicleID: strings.TrimSpace(in.EPAVehicleID),
		CombinedMPG:  in.CombinedMPG,
	}

	var saved domain.Vehicle
	if current != nil && used == 0 {
		v.ID = current.ID
		saved, err = s.vehicles.Update(ctx, v)
	} else {
		saved, err = s.vehicles.Create(ctx, v)
	}
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.SaveDefaultVehicle: %w", err)
	}

	if err := s.store.SetDefaultVehicle(ctx, &saved); err != nil {
		return domain.Vehicle{}, fmt.Errorf("service.VehicleService.SaveDefaultVehicle: %w", err)
	}
	return saved, nil
}

// ClearDefaultVehicle removes the default; later trips are saved without a vehicle.
func (s *VehicleService) ClearDefaultVehicle(ctx context.Context) error {
	if err := s.store.SetDefaultVehicle(ctx, nil); err != nil {
		return fmt.Errorf("service.VehicleService.ClearDefaultVehicle: %w", err)
	}
	return nil
}

// validateVehicle enforces the vehicle business rules.
//   - Make and Model must be non-empty.
//   - Year must be a plausible model year.
//   - CombinedMPG, if set, must be a positive finite number.
func validateVehicle(in VehicleInput) error {
	if strings.TrimSpace(in.Make) == "" {
		return fmt.Errorf("%w: make is required", domain.ErrValidation)
	}
	if strings.TrimSpace(in.Model) == "" {
		return fmt.Errorf("%w: model is required", domain.ErrValidation)
	}
	if in.Year < 1900 || in.Year > 2100 {
		return fmt.Errorf("%w: year must be between 1900 and 2100", domain.ErrValidation)
	}
	if in.CombinedMPG != nil {
		mpg := *in.CombinedMPG
		if !(mpg > 0) || math.IsInf(mpg, 0) {
			return fmt.Errorf("%w: combined_mpg must be positive", domain.ErrValidation)
		}
	}
	return nil
}
