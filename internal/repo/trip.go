package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/carless/internal/domain"
)

// TripRepo defines the persistence operations for Trips and their Waypoints.
// The store layer depends on this interface, not the concrete Postgres
// implementation, which allows the gateway to be unit-tested with a mock.
type TripRepo interface {
	// Save inserts or updates a trip and inserts any waypoints not yet stored,
	// all in one transaction. CreatedAt and UpdatedAt are refreshed on the trip.
	Save(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip with its vehicle and waypoints.
	// Returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error)

	// List returns one page of trips ordered by start_timestamp descending.
	// Waypoints are not loaded.
	List(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error)

	// Count returns the total number of stored trips.
	Count(ctx context.Context) (int64, error)

	// CountByVehicle returns the number of trips referencing the vehicle.
	CountByVehicle(ctx context.Context, vehicleID uuid.UUID) (int, error)

	// Delete removes a trip and, by cascade, its waypoints.
	// Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `
		t.id, t.log_type, t.mode_type, t.category_type, t.distance_meters,
		t.start_timestamp, t.end_timestamp, t.pending,
		t.fuel_price, t.fuel_price_date, t.fuel_price_series_id,
		t.created_at, t.updated_at,
		v.id, v.year, v.make, v.model, v.epa_vehicle_id, v.combined_mpg, v.created_at, v.updated_at`

// Save upserts the trip row and appends unseen waypoints in one transaction.
func (r *pgTripRepo) Save(ctx context.Context, trip *domain.Trip) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Save: begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	const q = `
		INSERT INTO trips (
			id, log_type, mode_type, category_type, distance_meters,
			start_timestamp, end_timestamp, pending,
			fuel_price, fuel_price_date, fuel_price_series_id, vehicle_id)
		VALUES (
			@id, @log_type, @mode_type, @category_type, @distance_meters,
			@start_timestamp, @end_timestamp, @pending,
			@fuel_price, @fuel_price_date, @fuel_price_series_id, @vehicle_id)
		ON CONFLICT (id) DO UPDATE SET
			category_type        = EXCLUDED.category_type,
			distance_meters      = EXCLUDED.distance_meters,
			start_timestamp      = EXCLUDED.start_timestamp,
			end_timestamp        = EXCLUDED.end_timestamp,
			pending              = EXCLUDED.pending,
			fuel_price           = EXCLUDED.fuel_price,
			fuel_price_date      = EXCLUDED.fuel_price_date,
			fuel_price_series_id = EXCLUDED.fuel_price_series_id,
			vehicle_id           = EXCLUDED.vehicle_id,
			updated_at           = now()
		RETURNING created_at, updated_at`

	args := pgx.NamedArgs{
		"id":                   trip.ID,
		"log_type":             string(trip.LogType()),
		"mode_type":            string(trip.Mode()),
		"category_type":        nil,
		"distance_meters":      trip.Meters(),
		"start_timestamp":      trip.StartTimestamp,
		"end_timestamp":        trip.EndTimestamp, // nil becomes NULL
		"pending":              trip.Pending,
		"fuel_price":           pgtype.Numeric{},
		"fuel_price_date":      pgtype.Date{},
		"fuel_price_series_id": nil,
		"vehicle_id":           nil,
	}
	if trip.Category != nil {
		args["category_type"] = string(*trip.Category)
	}
	if fp := trip.FuelPrice; fp != nil {
		args["fuel_price"] = toNumeric(&fp.Price)
		args["fuel_price_date"] = pgtype.Date{Time: fp.StartDate, Valid: true}
		args["fuel_price_series_id"] = fp.SeriesID
	}
	if trip.Vehicle != nil {
		args["vehicle_id"] = trip.Vehicle.ID
	}

	if err := tx.QueryRow(ctx, q, args).Scan(&trip.CreatedAt, &trip.UpdatedAt); err != nil {
		return fmt.Errorf("repo.TripRepo.Save: %w", err)
	}

	if len(trip.Waypoints) > 0 {
		const wq = `
			INSERT INTO waypoints (
				id, trip_id, seq, latitude, longitude, altitude,
				horizontal_accuracy, vertical_accuracy, speed, course, recorded_at)
			VALUES (
				@id, @trip_id, @seq, @latitude, @longitude, @altitude,
				@horizontal_accuracy, @vertical_accuracy, @speed, @course, @recorded_at)
			ON CONFLICT (id) DO NOTHING`

		batch := &pgx.Batch{}
		for i, w := range trip.Waypoints {
			batch.Queue(wq, pgx.NamedArgs{
				"id":                  w.ID,
				"trip_id":             trip.ID,
				"seq":                 i,
				"latitude":            w.Latitude,
				"longitude":           w.Longitude,
				"altitude":            w.Altitude,
				"horizontal_accuracy": w.HorizontalAccuracy,
				"vertical_accuracy":   w.VerticalAccuracy,
				"speed":               w.Speed,
				"course":              w.Course,
				"recorded_at":         w.Timestamp,
			})
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("repo.TripRepo.Save: waypoints: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repo.TripRepo.Save: commit: %w", err)
	}
	return nil
}

// GetByID retrieves a trip by primary key, including its waypoints.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	q := `SELECT` + tripColumns + `
		FROM trips t
		LEFT JOIN vehicles v ON v.id = t.vehicle_id
		WHERE t.id = @id`

	trip, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}

	waypoints, err := r.listWaypoints(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	trip.Waypoints = waypoints
	return trip, nil
}

// List returns committed trips ordered by start_timestamp descending (most
// recent first). Pending rows are never listed.
func (r *pgTripRepo) List(ctx context.Context, p domain.PaginationParams) ([]*domain.Trip, error) {
	q := `SELECT` + tripColumns + `
		FROM trips t
		LEFT JOIN vehicles v ON v.id = t.vehicle_id
		WHERE NOT t.pending
		ORDER BY t.start_timestamp DESC, t.id
		LIMIT @limit OFFSET @skip`

	// A NULL limit means no limit in Postgres.
	var limit *int
	if p.Limit > 0 {
		limit = &p.Limit
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": limit, "skip": p.Skip})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("repo.TripRepo.List: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: rows: %w", err)
	}

	return trips, nil
}

// Count returns the number of trips List can return.
func (r *pgTripRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM trips WHERE NOT pending`).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.TripRepo.Count: %w", err)
	}
	return n, nil
}

// CountByVehicle returns the number of trips referencing vehicleID.
func (r *pgTripRepo) CountByVehicle(ctx context.Context, vehicleID uuid.UUID) (int, error) {
	const q = `SELECT count(*) FROM trips WHERE vehicle_id = @vehicle_id`

	var n int
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"vehicle_id": vehicleID}).Scan(&n); err != nil {
		return 0, fmt.Errorf("repo.TripRepo.CountByVehicle: %w", err)
	}
	return n, nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTripRepo) listWaypoints(ctx context.Context, tripID uuid.UUID) ([]domain.Waypoint, error) {
	const q = `
		SELECT id, trip_id, latitude, longitude, altitude,
		       horizontal_accuracy, vertical_accuracy, speed, course, recorded_at
		FROM waypoints
		WHERE trip_id = @trip_id
		ORDER BY seq`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"trip_id": tripID})
	if err != nil {
		return nil, fmt.Errorf("waypoints: %w", err)
	}
	defer rows.Close()

	var out []domain.Waypoint
	for rows.Next() {
		var (
			w      domain.Waypoint
			id     pgtype.UUID
			tripID pgtype.UUID
		)
		if err := rows.Scan(&id, &tripID, &w.Latitude, &w.Longitude, &w.Altitude,
			&w.HorizontalAccuracy, &w.VerticalAccuracy, &w.Speed, &w.Course, &w.Timestamp); err != nil {
			return nil, fmt.Errorf("waypoints: scan: %w", err)
		}
		w.ID = uuid.UUID(id.Bytes)
		w.TripID = uuid.UUID(tripID.Bytes)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("waypoints: rows: %w", err)
	}
	return out, nil
}

// scanTrip maps a single row of tripColumns into a domain.Trip.
// The vehicle columns come from a LEFT JOIN and may all be NULL.
func scanTrip(s scanner) (*domain.Trip, error) {
	var (
		id          pgtype.UUID
		logType     string
		modeType    string
		category    *string
		meters      float64
		start       time.Time
		end         *time.Time
		pending     bool
		fuelPrice   pgtype.Numeric
		fuelDate    pgtype.Date
		fuelSeries  *string
		createdAt   time.Time
		updatedAt   time.Time
		vehicleID   pgtype.UUID
		year        *int32
		vMake       *string
		vModel      *string
		epaID       *string
		combinedMPG *float64
		vCreatedAt  *time.Time
		vUpdatedAt  *time.Time
	)

	err := s.Scan(&id, &logType, &modeType, &category, &meters,
		&start, &end, &pending,
		&fuelPrice, &fuelDate, &fuelSeries,
		&createdAt, &updatedAt,
		&vehicleID, &year, &vMake, &vModel, &epaID, &combinedMPG, &vCreatedAt, &vUpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	lt, err := domain.ParseLogType(logType)
	if err != nil {
		return nil, err
	}
	t := domain.NewTrip(uuid.UUID(id.Bytes), lt, domain.Mode(modeType))
	if err := t.SetDistance(meters, domain.Meter); err != nil {
		return nil, err
	}
	t.StartTimestamp = start
	t.EndTimestamp = end
	t.Pending = pending
	t.CreatedAt = createdAt
	t.UpdatedAt = updatedAt
	if category != nil {
		c := domain.Category(*category)
		t.Category = &c
	}
	if price, ok := fromNumeric(fuelPrice); ok {
		fp := &domain.FuelPrice{Price: price}
		if fuelDate.Valid {
			fp.StartDate = fuelDate.Time
		}
		if fuelSeries != nil {
			fp.SeriesID = *fuelSeries
		}
		t.FuelPrice = fp
	}
	if vehicleID.Valid {
		v := &domain.Vehicle{ID: uuid.UUID(vehicleID.Bytes), CombinedMPG: combinedMPG}
		if year != nil {
			v.Year = int(*year)
		}
		if vMake != nil {
			v.Make = *vMake
		}
		if vModel != nil {
			v.Model = *vModel
		}
		if epaID != nil {
			v.EPAVehicleID = *epaID
		}
		if vCreatedAt != nil {
			v.CreatedAt = *vCreatedAt
		}
		if vUpdatedAt != nil {
			v.UpdatedAt = *vUpdatedAt
		}
		t.Vehicle = v
	}

	return t, nil
}
