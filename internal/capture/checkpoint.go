package capture

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/pkordes/carless/internal/domain"
)

// Checkpoint is the durable snapshot of an unfinished tracked trip.
type Checkpoint struct {
	TripID         uuid.UUID         `json:"trip_id"`
	Mode           domain.Mode       `json:"mode"`
	State          TrackedState      `json:"state"`
	StartTimestamp time.Time         `json:"start_timestamp"`
	EndTimestamp   *time.Time        `json:"end_timestamp,omitempty"`
	Meters         float64           `json:"meters"`
	Waypoints      []domain.Waypoint `json:"waypoints"`
	Last           *Sample           `json:"last,omitempty"`
	NextToLast     *Sample           `json:"next_to_last,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// SQLiteCheckpoints keeps checkpoints in a local sqlite file, one row per trip.
type SQLiteCheckpoints struct {
	db *sql.DB
}

// OpenSQLiteCheckpoints opens (creating if needed) the checkpoint file at path.
// Use ":memory:" for a throwaway store.
func OpenSQLiteCheckpoints(ctx context.Context, path string) (*SQLiteCheckpoints, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("capture.OpenSQLiteCheckpoints: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serialises writers.
	db.SetMaxOpenConns(1)

	const ddl = `
		CREATE TABLE IF NOT EXISTS tracking_checkpoints (
			trip_id    TEXT PRIMARY KEY,
			payload    TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("capture.OpenSQLiteCheckpoints: %w", err)
	}
	return &SQLiteCheckpoints{db: db}, nil
}

// Close releases the underlying file.
func (s *SQLiteCheckpoints) Close() error { return s.db.Close() }

func (s *SQLiteCheckpoints) Put(ctx context.Context, cp Checkpoint) error {
	payload, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("capture.SQLiteCheckpoints.Put: %w", err)
	}
	const q = `
		INSERT INTO tracking_checkpoints (trip_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (trip_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`
	_, err = s.db.ExecContext(ctx, q, cp.TripID.String(), string(payload), cp.UpdatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("capture.SQLiteCheckpoints.Put: %w", err)
	}
	return nil
}

func (s *SQLiteCheckpoints) Delete(ctx context.Context, tripID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tracking_checkpoints WHERE trip_id = ?`, tripID.String())
	if err != nil {
		return fmt.Errorf("capture.SQLiteCheckpoints.Delete: %w", err)
	}
	return nil
}

// UnreadableCheckpointsError reports checkpoint rows whose payload could not
// be decoded. List has already removed them; the readable checkpoints are
// returned alongside it.
type UnreadableCheckpointsError struct {
	Keys []string
	Err  error
}

func (e *UnreadableCheckpointsError) Error() string {
	return fmt.Sprintf("%d unreadable tracking checkpoint(s) %v: %v", len(e.Keys), e.Keys, e.Err)
}

func (e *UnreadableCheckpointsError) Unwrap() error { return e.Err }

// List returns every stored checkpoint, oldest first. Rows that cannot be
// decoded are deleted and reported through *UnreadableCheckpointsError
// together with the checkpoints that could be read.
func (s *SQLiteCheckpoints) List(ctx context.Context) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trip_id, payload FROM tracking_checkpoints ORDER BY updated_at, trip_id`)
	if err != nil {
		return nil, fmt.Errorf("capture.SQLiteCheckpoints.List: %w", err)
	}

	var (
		out  []Checkpoint
		bad  []string
		errs []error
	)
	for rows.Next() {
		var key, payload string
		if err := rows.Scan(&key, &payload); err != nil {
			rows.Close()
			return nil, fmt.Errorf("capture.SQLiteCheckpoints.List: %w", err)
		}
		var cp Checkpoint
		if err := json.Unmarshal([]byte(payload), &cp); err != nil {
			bad = append(bad, key)
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		out = append(out, cp)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("capture.SQLiteCheckpoints.List: %w", err)
	}
	if len(bad) == 0 {
		return out, nil
	}

	// The single connection is free again once rows is closed.
	for _, key := range bad {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM tracking_checkpoints WHERE trip_id = ?`, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return out, &UnreadableCheckpointsError{Keys: bad, Err: errors.Join(domain.ErrValidation, errors.Join(errs...))}
}
