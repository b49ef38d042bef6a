// Package capture holds the two trip capture flows: manual entry and GPS
// tracking. Both talk to persistence only through the Gateway interface and
// hand their finished trip to a Summary, which owns the final save.
package capture

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/domain"
)

// ErrLocationDenied is returned when the location service refuses
// authorization. Tracking does not start and no trip is created.
var ErrLocationDenied = errors.New("location authorization denied")

// ErrNotTracking is returned when a location sample or stop request reaches a
// flow that is not in the Tracking state.
var ErrNotTracking = errors.New("not tracking")

// Gateway is the slice of the persistence gateway the flows use.
// *store.Gateway satisfies it.
type Gateway interface {
	InitTrip(logType domain.LogType, mode domain.Mode) *domain.Trip
	Adopt(trip *domain.Trip)
	Discard(trip *domain.Trip)
	Save(ctx context.Context, trip *domain.Trip) error
}

// Confirmer asks the user to confirm a destructive step such as stopping a
// tracked trip. Returning false cancels the step.
type Confirmer interface {
	Confirm(ctx context.Context) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context) (bool, error)

func (f ConfirmFunc) Confirm(ctx context.Context) (bool, error) { return f(ctx) }

// Confirmed is a Confirmer that always answers yes or always answers no.
type Confirmed bool

func (c Confirmed) Confirm(context.Context) (bool, error) { return bool(c), nil }

// Checkpointer persists in-progress tracked trips so they survive a restart.
type Checkpointer interface {
	Put(ctx context.Context, cp Checkpoint) error
	Delete(ctx context.Context, tripID uuid.UUID) error
	List(ctx context.Context) ([]Checkpoint, error)
}

type nopCheckpointer struct{}

func (nopCheckpointer) Put(context.Context, Checkpoint) error { return nil }
func (nopCheckpointer) Delete(context.Context, uuid.UUID) error { return nil }
func (nopCheckpointer) List(context.Context) ([]Checkpoint, error) { return nil, nil }
