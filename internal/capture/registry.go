package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/domain"
)

// Session is one tracked trip driven by a remote client.
type Session struct {
	ID      uuid.UUID
	Source  *PushSource
	Capture *TrackedCapture
}

// RegistryOptions configures a Registry. The zero value is usable.
type RegistryOptions struct {
	Checkpoints Checkpointer
	Logger      *slog.Logger
	Now         func() time.Time
}

// Registry owns every live tracking session, keyed by trip ID.
type Registry struct {
	gw   Gateway
	cps  Checkpointer
	log  *slog.Logger
	opts TrackedOptions

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry returns an empty registry.
func NewRegistry(gw Gateway, opts RegistryOptions) *Registry {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	cps := opts.Checkpoints
	if cps == nil {
		cps = nopCheckpointer{}
	}
	return &Registry{
		gw:       gw,
		cps:      cps,
		log:      log,
		opts:     TrackedOptions{Checkpoints: cps, Logger: log, Now: opts.Now},
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Start opens a session for mode. authorized is the user's answer to the
// location permission prompt; false yields ErrLocationDenied and no session.
func (r *Registry) Start(ctx context.Context, mode domain.Mode, authorized bool) (*Session, error) {
	src := NewPushSource(authorized)
	c := NewTrackedCapture(r.gw, src, mode, r.opts)
	if err := c.Start(ctx); err != nil {
		return nil, err
	}
	s := &Session{ID: c.Trip().ID, Source: src, Capture: c}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()

	r.log.InfoContext(ctx, "tracking started", "trip_id", s.ID, "mode", mode, "hints", src.Hints())
	return s, nil
}

// Get returns the session for id or domain.ErrNotFound.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, fmt.Errorf("capture.Registry.Get: %w", domain.ErrNotFound)
	}
	return s, nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Push delivers a sample to the session. Samples arriving while the source is
// inactive are rejected with ErrNotTracking.
func (r *Registry) Push(ctx context.Context, id uuid.UUID, sample Sample) (Progress, error) {
	s, err := r.Get(id)
	if err != nil {
		return Progress{}, err
	}
	if !s.Source.Active() {
		return Progress{}, fmt.Errorf("capture.Registry.Push: %w", ErrNotTracking)
	}
	return s.Capture.OnLocation(ctx, sample)
}

// Stop asks confirm and, when confirmed, stops the session and returns its
// Summary. A declined confirmation returns a nil Summary and no error.
func (r *Registry) Stop(ctx context.Context, id uuid.UUID, confirm Confirmer) (*Summary, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return s.Capture.Stop(ctx, confirm)
}

// Save commits a stopped session's trip and closes the session.
func (r *Registry) Save(ctx context.Context, id uuid.UUID) (*domain.Trip, error) {
	s, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	sum := s.Capture.Summary()
	if sum == nil {
		return nil, fmt.Errorf("capture.Registry.Save: %w: session is still %s", domain.ErrConflict, s.Capture.State())
	}
	if err := sum.Save(ctx); err != nil {
		return nil, err
	}
	r.remove(id)
	return sum.Trip(), nil
}

// Discard abandons the session at any stage and closes it.
func (r *Registry) Discard(ctx context.Context, id uuid.UUID) error {
	s, err := r.Get(id)
	if err != nil {
		return err
	}
	if err := s.Capture.Abandon(ctx); err != nil {
		return err
	}
	r.remove(id)
	r.log.InfoContext(ctx, "tracking discarded", "trip_id", id)
	return nil
}

func (r *Registry) remove(id uuid.UUID) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Restore reloads every checkpoint left by a previous process. Restored
// sessions assume location access was already granted. Unreadable
// checkpoints are logged and dropped.
func (r *Registry) Restore(ctx context.Context) (int, error) {
	cps, err := r.cps.List(ctx)
	var unreadable *UnreadableCheckpointsError
	switch {
	case errors.As(err, &unreadable):
		r.log.WarnContext(ctx, "dropped unreadable tracking checkpoints", "keys", unreadable.Keys, "error", unreadable.Err)
	case err != nil:
		return 0, fmt.Errorf("capture.Registry.Restore: %w", err)
	}

	n := 0
	for _, cp := range cps {
		src := NewPushSource(true)
		c, err := RestoreTracked(r.gw, src, cp, r.opts)
		if err != nil {
			r.log.WarnContext(ctx, "dropping unusable tracking checkpoint", "trip_id", cp.TripID, "error", err)
			if err := r.cps.Delete(ctx, cp.TripID); err != nil {
				r.log.WarnContext(ctx, "tracking checkpoint delete failed", "trip_id", cp.TripID, "error", err)
			}
			continue
		}
		r.mu.Lock()
		r.sessions[cp.TripID] = &Session{ID: cp.TripID, Source: src, Capture: c}
		r.mu.Unlock()
		n++
	}
	if n > 0 {
		r.log.InfoContext(ctx, "tracking sessions restored", "count", n)
	}
	return n, nil
}
