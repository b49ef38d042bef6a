package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/geo"
)

// TrackedState is a step of the GPS tracking flow.
type TrackedState int

const (
	TrackedIdle TrackedState = iota
	TrackedTracking
	TrackedStopped
)

func (s TrackedState) String() string {
	switch s {
	case TrackedIdle:
		return "idle"
	case TrackedTracking:
		return "tracking"
	case TrackedStopped:
		return "stopped"
	}
	return fmt.Sprintf("TrackedState(%d)", int(s))
}

// TrackedOptions configures a TrackedCapture. The zero value is usable.
type TrackedOptions struct {
	Checkpoints Checkpointer
	Logger      *slog.Logger
	Now         func() time.Time
}

// Segment is the most recent leg of the path, for drawing.
type Segment struct {
	From geo.Point `json:"from"`
	To   geo.Point `json:"to"`
}

// Progress is reported for every sample the flow receives.
type Progress struct {
	TripID    uuid.UUID `json:"trip_id"`
	Accepted  bool      `json:"accepted"`
	Meters    float64   `json:"meters"`
	Waypoints int       `json:"waypoints"`
	Segment   *Segment  `json:"segment,omitempty"`
}

// TrackedCapture turns a stream of location samples into a tracked trip.
//
// The first sample becomes a waypoint. Every later sample is measured against
// the last accepted one: a positive great-circle delta is added to the
// distance and recorded as a waypoint, a zero delta is dropped.
type TrackedCapture struct {
	gw   Gateway
	loc  LocationService
	mode domain.Mode
	cps  Checkpointer
	log  *slog.Logger
	now  func() time.Time

	mu         sync.Mutex
	state      TrackedState
	trip       *domain.Trip
	last       *Sample
	nextToLast *Sample
	summary    *Summary
}

// NewTrackedCapture returns an idle flow for mode.
func NewTrackedCapture(gw Gateway, loc LocationService, mode domain.Mode, opts TrackedOptions) *TrackedCapture {
	c := &TrackedCapture{gw: gw, loc: loc, mode: mode, cps: opts.Checkpoints, log: opts.Logger, now: opts.Now}
	if c.cps == nil {
		c.cps = nopCheckpointer{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Mode is fixed for the life of the flow.
func (c *TrackedCapture) Mode() domain.Mode { return c.mode }

// State returns the current step.
func (c *TrackedCapture) State() TrackedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trip returns the trip being tracked, nil while Idle.
func (c *TrackedCapture) Trip() *domain.Trip {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trip
}

// Summary returns the hand-off created by a confirmed Stop.
func (c *TrackedCapture) Summary() *Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary
}

// Start requests location authorization and enters Tracking. A denial returns
// ErrLocationDenied and leaves the flow Idle; calling Start again asks again.
func (c *TrackedCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != TrackedIdle {
		return fmt.Errorf("capture.TrackedCapture.Start: %w: already %s", domain.ErrConflict, c.state)
	}
	if !c.mode.Valid() {
		return fmt.Errorf("capture.TrackedCapture.Start: %w: mode is required", domain.ErrValidation)
	}

	ok, err := c.loc.RequestAuthorization(ctx)
	if err != nil {
		return fmt.Errorf("capture.TrackedCapture.Start: %w", err)
	}
	if !ok {
		return fmt.Errorf("capture.TrackedCapture.Start: %w", ErrLocationDenied)
	}

	trip := c.gw.InitTrip(domain.LogTracked, c.mode)
	trip.StartTimestamp = c.now()
	trip.Pending = true

	if err := c.loc.Start(HintsFor(c.mode)); err != nil {
		c.gw.Discard(trip)
		return fmt.Errorf("capture.TrackedCapture.Start: %w", err)
	}
	c.trip = trip
	c.state = TrackedTracking
	c.checkpoint(ctx)
	return nil
}

// OnLocation feeds one sample into the flow.
func (c *TrackedCapture) OnLocation(ctx context.Context, s Sample) (Progress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != TrackedTracking {
		return Progress{}, fmt.Errorf("capture.TrackedCapture.OnLocation: %w", ErrNotTracking)
	}
	if !s.Point().Valid() {
		return Progress{}, fmt.Errorf("capture.TrackedCapture.OnLocation: %w: coordinate out of range", domain.ErrValidation)
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = c.now()
	}

	if c.last == nil {
		c.last = &s
		c.addWaypoint(s)
		c.checkpoint(ctx)
		return c.progress(true), nil
	}

	delta := geo.Distance(c.last.Point(), s.Point())
	if !(delta > 0) {
		return c.progress(false), nil
	}
	if err := c.trip.AddMeters(delta); err != nil {
		return Progress{}, fmt.Errorf("capture.TrackedCapture.OnLocation: %w", err)
	}
	c.addWaypoint(s)
	prev := *c.last
	c.nextToLast = &prev
	c.last = &s
	c.checkpoint(ctx)
	return c.progress(true), nil
}

func (c *TrackedCapture) addWaypoint(s Sample) {
	c.trip.AddWaypoint(domain.Waypoint{
		ID:                 uuid.New(),
		Latitude:           s.Latitude,
		Longitude:          s.Longitude,
		Altitude:           s.Altitude,
		HorizontalAccuracy: s.HorizontalAccuracy,
		VerticalAccuracy:   s.VerticalAccuracy,
		Speed:              s.Speed,
		Course:             s.Course,
		Timestamp:          s.Timestamp,
	})
}

// Snapshot reports the distance and waypoints recorded so far. The zero
// Progress is returned while Idle.
func (c *TrackedCapture) Snapshot() Progress {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trip == nil {
		return Progress{}
	}
	return c.progress(false)
}

func (c *TrackedCapture) progress(accepted bool) Progress {
	return Progress{
		TripID:    c.trip.ID,
		Accepted:  accepted,
		Meters:    c.trip.Meters(),
		Waypoints: len(c.trip.Waypoints),
		Segment:   c.segment(),
	}
}

// segment returns the leg from the next-to-last to the last accepted sample.
func (c *TrackedCapture) segment() *Segment {
	if c.last == nil || c.nextToLast == nil {
		return nil
	}
	return &Segment{From: c.nextToLast.Point(), To: c.last.Point()}
}

// Stop asks confirm before stopping. When the user cancels, the flow keeps
// tracking and Stop returns a nil Summary. Once confirmed, location updates
// stop, the end timestamp is set and the trip is handed to a Summary.
func (c *TrackedCapture) Stop(ctx context.Context, confirm Confirmer) (*Summary, error) {
	c.mu.Lock()
	if c.state != TrackedTracking {
		c.mu.Unlock()
		return nil, fmt.Errorf("capture.TrackedCapture.Stop: %w", ErrNotTracking)
	}
	c.mu.Unlock()

	// The lock is not held while the user decides so samples keep flowing.
	ok, err := confirm.Confirm(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture.TrackedCapture.Stop: %w", err)
	}
	if !ok {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != TrackedTracking {
		return nil, fmt.Errorf("capture.TrackedCapture.Stop: %w", ErrNotTracking)
	}
	end := c.now()
	if end.Before(c.trip.StartTimestamp) {
		end = c.trip.StartTimestamp
	}
	if err := c.trip.Stop(end); err != nil {
		return nil, fmt.Errorf("capture.TrackedCapture.Stop: %w", err)
	}
	c.loc.Stop()
	c.state = TrackedStopped
	c.summary = newSummary(c.gw, c.trip, false, c.finish)
	c.checkpoint(ctx)
	return c.summary, nil
}

// Abandon throws the trip away at any point after Start.
func (c *TrackedCapture) Abandon(ctx context.Context) error {
	c.mu.Lock()
	switch c.state {
	case TrackedIdle:
		c.mu.Unlock()
		return nil
	case TrackedStopped:
		s := c.summary
		c.mu.Unlock()
		if s == nil {
			return nil
		}
		return s.Discard(ctx)
	}
	c.loc.Stop()
	c.state = TrackedStopped
	trip := c.trip
	c.mu.Unlock()

	c.gw.Discard(trip)
	c.finish(ctx, false)
	return nil
}

// finish drops the checkpoint once the trip is saved or discarded.
func (c *TrackedCapture) finish(ctx context.Context, saved bool) {
	if err := c.cps.Delete(ctx, c.trip.ID); err != nil {
		c.log.WarnContext(ctx, "tracking checkpoint delete failed", "trip_id", c.trip.ID, "error", err)
	}
	c.log.InfoContext(ctx, "tracked trip finished", "trip_id", c.trip.ID, "saved", saved)
}

// checkpoint must be called with mu held.
func (c *TrackedCapture) checkpoint(ctx context.Context) {
	cp := Checkpoint{
		TripID:         c.trip.ID,
		Mode:           c.mode,
		State:          c.state,
		StartTimestamp: c.trip.StartTimestamp,
		EndTimestamp:   c.trip.EndTimestamp,
		Meters:         c.trip.Meters(),
		Waypoints:      append([]domain.Waypoint(nil), c.trip.Waypoints...),
		Last:           c.last,
		NextToLast:     c.nextToLast,
		UpdatedAt:      c.now(),
	}
	if err := c.cps.Put(ctx, cp); err != nil {
		c.log.WarnContext(ctx, "tracking checkpoint failed", "trip_id", c.trip.ID, "error", err)
	}
}

// RestoreTracked rebuilds a flow from a checkpoint and re-registers its trip
// with the gateway. A flow that was tracking resumes location updates.
func RestoreTracked(gw Gateway, loc LocationService, cp Checkpoint, opts TrackedOptions) (*TrackedCapture, error) {
	if cp.State == TrackedIdle {
		return nil, fmt.Errorf("capture.RestoreTracked: %w: checkpoint of an idle flow", domain.ErrValidation)
	}
	c := NewTrackedCapture(gw, loc, cp.Mode, opts)

	trip := domain.NewTrip(cp.TripID, domain.LogTracked, cp.Mode)
	trip.StartTimestamp = cp.StartTimestamp
	trip.EndTimestamp = cp.EndTimestamp
	trip.Pending = true
	if err := trip.AddMeters(cp.Meters); err != nil {
		return nil, fmt.Errorf("capture.RestoreTracked: %w", err)
	}
	for _, w := range cp.Waypoints {
		trip.AddWaypoint(w)
	}
	if err := trip.Validate(); err != nil {
		return nil, fmt.Errorf("capture.RestoreTracked: %w", err)
	}

	c.trip = trip
	c.last = cp.Last
	c.nextToLast = cp.NextToLast
	c.state = cp.State
	switch cp.State {
	case TrackedTracking:
		if err := loc.Start(HintsFor(cp.Mode)); err != nil {
			return nil, fmt.Errorf("capture.RestoreTracked: %w", err)
		}
	case TrackedStopped:
		c.summary = newSummary(gw, trip, false, c.finish)
	}
	gw.Adopt(trip)
	return c, nil
}
