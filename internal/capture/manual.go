package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/fuel"
)

// ManualState is a step of the manual entry flow.
type ManualState int

const (
	ManualEditing ManualState = iota
	ManualValidating
	ManualSaving
	ManualFuelLookupFailed
	ManualSavingWithoutFuelData
	ManualDone
)

func (s ManualState) String() string {
	switch s {
	case ManualEditing:
		return "editing"
	case ManualValidating:
		return "validating"
	case ManualSaving:
		return "saving"
	case ManualFuelLookupFailed:
		return "fuel_lookup_failed"
	case ManualSavingWithoutFuelData:
		return "saving_without_fuel_data"
	case ManualDone:
		return "done"
	}
	return fmt.Sprintf("ManualState(%d)", int(s))
}

// ManualOptions configures a ManualCapture. The zero value is usable.
type ManualOptions struct {
	// Finder resolves the fuel price for the trip's start date. Without one
	// every trip is saved without fuel data.
	Finder fuel.Finder
	// FuelTimeout bounds the wait for the fuel price. Zero waits until ctx is done.
	FuelTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// ManualOutcome reports what a save request did.
type ManualOutcome struct {
	// State is ManualDone when a trip was saved and ManualEditing when the
	// form was incomplete.
	State ManualState
	// Path lists every state entered, in order.
	Path []ManualState
	// Summary carries the saved trip. Nil unless State is ManualDone.
	Summary *Summary
}

// FuelLookupFailed reports whether the trip was saved without fuel data.
func (o ManualOutcome) FuelLookupFailed() bool {
	for _, s := range o.Path {
		if s == ManualFuelLookupFailed {
			return true
		}
	}
	return false
}

// ManualCapture is the manual entry form and its save flow.
type ManualCapture struct {
	gw     Gateway
	finder fuel.Finder
	wait   time.Duration
	log    *slog.Logger
	now    func() time.Time

	Mode     *Selectable[domain.Mode]
	Category *Selectable[domain.Category]

	mu       sync.Mutex
	state    ManualState
	distance float64
	unit     domain.LengthUnit
	start    time.Time

	// taskMu guards the in-flight lookup so Close can cancel it while Save
	// holds mu.
	taskMu sync.Mutex
	task   *fuel.Task
	closed bool
}

// NewManualCapture returns an empty form that enters distances in unit.
func NewManualCapture(gw Gateway, unit domain.LengthUnit, opts ManualOptions) *ManualCapture {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	if !unit.Valid() {
		unit = domain.Mile
	}
	return &ManualCapture{
		gw:       gw,
		finder:   opts.Finder,
		wait:     opts.FuelTimeout,
		log:      log,
		now:      now,
		Mode:     NewSelectable(domain.Modes),
		Category: NewSelectable(domain.Categories),
		unit:     unit,
	}
}

// State returns the current step.
func (m *ManualCapture) State() ManualState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// SetDistance records the entered distance. Unit may be empty to keep the current one.
func (m *ManualCapture) SetDistance(value float64, unit domain.LengthUnit) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.distance = value
	if unit.Valid() {
		m.unit = unit
	}
}

// SetStart records when the trip took place. Zero means now.
func (m *ManualCapture) SetStart(at time.Time) {
	m.mu.Lock()
	m.start = at
	m.mu.Unlock()
}

// Reset clears the form for the next entry.
func (m *ManualCapture) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reset()
}

func (m *ManualCapture) reset() {
	m.state = ManualEditing
	m.distance = 0
	m.start = time.Time{}
	m.Mode.Clear()
	m.Category.Clear()
}

// Save runs the flow: validate, build the trip, enrich it with the fuel price
// and persist it. An incomplete form is not an error: the outcome stays in
// ManualEditing and no trip is created. A fuel lookup failure is not an
// error either. Only persistence failures and a done ctx are returned.
func (m *ManualCapture) Save(ctx context.Context) (ManualOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isClosed() {
		return ManualOutcome{State: m.state}, fmt.Errorf("capture.ManualCapture.Save: %w: form closed", domain.ErrConflict)
	}
	if m.state != ManualEditing {
		return ManualOutcome{State: m.state}, fmt.Errorf("capture.ManualCapture.Save: %w: save already in progress", domain.ErrConflict)
	}

	out := ManualOutcome{}
	enter := func(s ManualState) {
		m.state = s
		out.Path = append(out.Path, s)
	}

	enter(ManualValidating)
	mode, hasMode := m.Mode.Selected()
	if !hasMode || !(m.distance > 0) || math.IsInf(m.distance, 0) {
		enter(ManualEditing)
		out.State = ManualEditing
		return out, nil
	}

	enter(ManualSaving)
	start := m.start
	if start.IsZero() {
		start = m.now()
	}
	trip := m.gw.InitTrip(domain.LogManual, mode)
	trip.StartTimestamp = start
	trip.Pending = false
	if err := trip.SetDistance(m.distance, m.unit); err != nil {
		m.gw.Discard(trip)
		enter(ManualEditing)
		out.State = ManualEditing
		return out, nil
	}
	if c, ok := m.Category.Selected(); ok {
		trip.Category = &c
	}

	price, err := m.lookup(ctx, start)
	if err != nil {
		if ctx.Err() != nil {
			m.gw.Discard(trip)
			enter(ManualEditing)
			out.State = ManualEditing
			return out, fmt.Errorf("capture.ManualCapture.Save: %w", ctx.Err())
		}
		m.log.InfoContext(ctx, "saving trip without fuel data", "trip_id", trip.ID, "error", err)
		enter(ManualFuelLookupFailed)
		enter(ManualSavingWithoutFuelData)
	} else {
		trip.FuelPrice = &price
	}

	if err := m.gw.Save(ctx, trip); err != nil {
		m.gw.Discard(trip)
		enter(ManualEditing)
		out.State = ManualEditing
		return out, fmt.Errorf("capture.ManualCapture.Save: %w", err)
	}

	enter(ManualDone)
	out.State = ManualDone
	out.Summary = newSummary(m.gw, trip, true, nil)
	m.reset()
	return out, nil
}

// lookup starts the fuel task for date and waits for it within the timeout.
// The task is cancelled once the wait is over so a late answer is dropped.
func (m *ManualCapture) lookup(ctx context.Context, date time.Time) (domain.FuelPrice, error) {
	if m.finder == nil {
		return domain.FuelPrice{}, errors.New("no fuel price source configured")
	}
	task := fuel.Lookup(ctx, m.finder, date)
	m.taskMu.Lock()
	m.task = task
	closed := m.closed
	m.taskMu.Unlock()
	if closed {
		task.Cancel()
	}
	defer func() {
		task.Cancel()
		m.taskMu.Lock()
		m.task = nil
		m.taskMu.Unlock()
	}()

	waitCtx := ctx
	if m.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, m.wait)
		defer cancel()
	}
	return task.Wait(waitCtx)
}

// Close tears the form down and cancels any fuel lookup still in flight.
func (m *ManualCapture) Close() {
	m.taskMu.Lock()
	task := m.task
	m.closed = true
	m.taskMu.Unlock()
	if task != nil {
		task.Cancel()
	}
}

func (m *ManualCapture) isClosed() bool {
	m.taskMu.Lock()
	defer m.taskMu.Unlock()
	return m.closed
}
