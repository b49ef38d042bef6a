package capture_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/carless/internal/capture"
	"github.com/pkordes/carless/internal/domain"
)

// fakeGateway records what the flows ask of the persistence gateway.
type fakeGateway struct {
	mu       sync.Mutex
	inits    int
	pending  map[uuid.UUID]*domain.Trip
	saved    []*domain.Trip
	discards int
	saveErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{pending: map[uuid.UUID]*domain.Trip{}}
}

func (g *fakeGateway) InitTrip(logType domain.LogType, mode domain.Mode) *domain.Trip {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inits++
	trip := domain.NewTrip(uuid.New(), logType, mode)
	g.pending[trip.ID] = trip
	return trip
}

func (g *fakeGateway) Adopt(trip *domain.Trip) {
	g.mu.Lock()
	g.pending[trip.ID] = trip
	g.mu.Unlock()
}

func (g *fakeGateway) Discard(trip *domain.Trip) {
	g.mu.Lock()
	g.discards++
	delete(g.pending, trip.ID)
	g.mu.Unlock()
}

func (g *fakeGateway) Save(_ context.Context, trip *domain.Trip) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.saveErr != nil {
		return g.saveErr
	}
	if err := trip.Validate(); err != nil {
		return err
	}
	delete(g.pending, trip.ID)
	g.saved = append(g.saved, trip)
	return nil
}

func (g *fakeGateway) isPending(id uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[id]
	return ok
}

var _ capture.Gateway = (*fakeGateway)(nil)

// memCheckpoints is an in-memory Checkpointer.
type memCheckpoints struct {
	mu   sync.Mutex
	byID map[uuid.UUID]capture.Checkpoint
	puts int
}

func newMemCheckpoints() *memCheckpoints {
	return &memCheckpoints{byID: map[uuid.UUID]capture.Checkpoint{}}
}

func (m *memCheckpoints) Put(_ context.Context, cp capture.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	m.byID[cp.TripID] = cp
	return nil
}

func (m *memCheckpoints) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, id)
	return nil
}

func (m *memCheckpoints) List(_ context.Context) ([]capture.Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]capture.Checkpoint, 0, len(m.byID))
	for _, cp := range m.byID {
		out = append(out, cp)
	}
	return out, nil
}

var _ capture.Checkpointer = (*memCheckpoints)(nil)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var fixedNow = time.Date(2024, 5, 14, 7, 30, 0, 0, time.UTC)

func clock() func() time.Time { return func() time.Time { return fixedNow } }
