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

// SettingRepo persists the single user-preferences record.
type SettingRepo interface {
	// Get returns the settings record, or domain.ErrNotFound if none has been saved.
	Get(ctx context.Context) (domain.Setting, error)

	// Upsert writes the settings record, creating it on first use.
	Upsert(ctx context.Context, s domain.Setting) (domain.Setting, error)
}

type pgSettingRepo struct {
	db db
}

// NewSettingRepo constructs a SettingRepo backed by the provided db connection.
func NewSettingRepo(db db) SettingRepo {
	return &pgSettingRepo{db: db}
}

func (r *pgSettingRepo) Get(ctx context.Context) (domain.Setting, error) {
	const q = `SELECT id, distance_unit, vehicle_id FROM settings LIMIT 1`

	result, err := scanSetting(r.db.QueryRow(ctx, q))
	if err != nil {
		return domain.Setting{}, fmt.Errorf("repo.SettingRepo.Get: %w", err)
	}
	return result, nil
}

// Upsert relies on the singleton unique column: there is never more than one row.
func (r *pgSettingRepo) Upsert(ctx context.Context, s domain.Setting) (domain.Setting, error) {
	const q = `
		INSERT INTO settings (distance_unit, vehicle_id)
		VALUES (@distance_unit, @vehicle_id)
		ON CONFLICT (singleton) DO UPDATE SET
			distance_unit = EXCLUDED.distance_unit,
			vehicle_id    = EXCLUDED.vehicle_id
		RETURNING id, distance_unit, vehicle_id`

	unit := s.DistanceUnit
	if unit == "" {
		unit = domain.Mile
	}
	row := r.db.QueryRow(ctx, q, pgx.NamedArgs{
		"distance_unit": string(unit),
		"vehicle_id":    s.VehicleID,
	})
	result, err := scanSetting(row)
	if err != nil {
		return domain.Setting{}, fmt.Errorf("repo.SettingRepo.Upsert: %w", err)
	}
	return result, nil
}

func scanSetting(sc scanner) (domain.Setting, error) {
	var (
		id        pgtype.UUID
		unit      string
		vehicleID pgtype.UUID
	)
	if err := sc.Scan(&id, &unit, &vehicleID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Setting{}, domain.ErrNotFound
		}
		return domain.Setting{}, err
	}
	s := domain.Setting{ID: uuid.UUID(id.Bytes), DistanceUnit: domain.LengthUnit(unit)}
	if vehicleID.Valid {
		vid := uuid.UUID(vehicleID.Bytes)
		s.VehicleID = &vid
	}
	return s, nil
}
