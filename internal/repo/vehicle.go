package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carless/internal/domain"
)

// VehicleRepo defines the persistence operations for reference vehicles.
type VehicleRepo interface {
	// Create inserts a new vehicle and returns the persisted record. A nil ID
	// is generated by the database.
	Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)

	// GetByID retrieves a vehicle. Returns domain.ErrNotFound if absent.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error)

	// Update overwrites the mutable fields of a vehicle.
	// Returns domain.ErrNotFound if absent.
	Update(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error)
}

type pgVehicleRepo struct {
	db db
}

// NewVehicleRepo constructs a VehicleRepo backed by the provided db connection.
func NewVehicleRepo(db db) VehicleRepo {
	return &pgVehicleRepo{db: db}
}

func (r *pgVehicleRepo) Create(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	const q = `
		INSERT INTO vehicles (id, year, make, model, epa_vehicle_id, combined_mpg)
		VALUES (COALESCE(@id, gen_random_uuid()), @year, @make, @model, @epa_vehicle_id, @combined_mpg)
		RETURNING id, year, make, model, epa_vehicle_id, combined_mpg, created_at, updated_at`

	var id *uuid.UUID
	if v.ID != uuid.Nil {
		id = &v.ID
	}
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":             id,
		"year":           v.Year,
		"make":           v.Make,
		"model":          v.Model,
		"epa_vehicle_id": v.EPAVehicleID,
		"combined_mpg":   v.CombinedMPG,
	})
	result, err := scanVehicle(row)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Create: %w", err)
	}
	return result, nil
}

func (r *pgVehicleRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Vehicle, error) {
	const q = `
		SELECT id, year, make, model, epa_vehicle_id, combined_mpg, created_at, updated_at
		FROM vehicles
		WHERE id = @id`

	result, err := scanVehicle(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.GetByID: %w", err)
	}
	return result, nil
}

func (r *pgVehicleRepo) Update(ctx context.Context, v domain.Vehicle) (domain.Vehicle, error) {
	const q = `
		UPDATE vehicles
		SET year           = @year,
		    make           = @make,
		    model          = @model,
		    epa_vehicle_id = @epa_vehicle_id,
		    combined_mpg   = @combined_mpg,
		    updated_at     = now()
		WHERE id = @id
		RETURNING id, year, make, model, epa_vehicle_id, combined_mpg, created_at, updated_at`

	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"id":             v.ID,
		"year":           v.Year,
		"make":           v.Make,
		"model":          v.Model,
		"epa_vehicle_id": v.EPAVehicleID,
		"combined_mpg":   v.CombinedMPG,
	})
	result, err := scanVehicle(row)
	if err != nil {
		return domain.Vehicle{}, fmt.Errorf("repo.VehicleRepo.Update: %w", err)
	}
	return result, nil
}

func scanVehicle(s scanner) (domain.Vehicle, error) {
	var (
		v    domain.Vehicle
		id   pgtype.UUID
		year int32
	)
	err := s.Scan(&id, &year, &v.Make, &v.Model, &v.EPAVehicleID, &v.CombinedMPG, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Vehicle{}, domain.ErrNotFound
		}
		return domain.Vehicle{}, err
	}
	v.ID = uuid.UUID(id.Bytes)
	v.Year = int(year)
	return v, nil
}
