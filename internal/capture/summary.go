package capture

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pkordes/carless/internal/domain"
)

// Summary is the hand-off point at the end of a capture flow. For manual
// trips it arrives already saved; for tracked trips the user reviews it and
// calls Save or Discard.
type Summary struct {
	gw   Gateway
	trip *domain.Trip

	mu       sync.Mutex
	saved    bool
	closed   bool
	onFinish func(ctx context.Context, saved bool)
}

func newSummary(gw Gateway, trip *domain.Trip, saved bool, onFinish func(context.Context, bool)) *Summary {
	return &Summary{gw: gw, trip: trip, saved: saved, closed: saved, onFinish: onFinish}
}

// Trip returns the trip under review. It is shared with Save; readers that
// may run alongside a save should use Snapshot.
func (s *Summary) Trip() *domain.Trip { return s.trip }

// Snapshot returns a copy of the trip and whether it has been committed,
// taken under the same lock Save holds while it commits.
func (s *Summary) Snapshot() (domain.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *s.trip
	cp.Waypoints = slices.Clone(s.trip.Waypoints)
	return cp, s.saved
}

// Saved reports whether the trip has been committed.
func (s *Summary) Saved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

// MoneySaved is shown on the summary when the fuel price and vehicle are known.
func (s *Summary) MoneySaved() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trip.MoneySaved()
}

// FuelSaved is shown on the summary when the vehicle is known.
func (s *Summary) FuelSaved() (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trip.FuelSaved()
}

// Save confirms the trip and commits it. A *store.CommitError leaves the
// summary open so the caller may try again.
func (s *Summary) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if s.saved {
			return nil
		}
		return fmt.Errorf("capture.Summary.Save: %w: trip was discarded", domain.ErrConflict)
	}

	s.trip.Pending = false
	if err := s.gw.Save(ctx, s.trip); err != nil {
		s.trip.Pending = true
		return fmt.Errorf("capture.Summary.Save: %w", err)
	}
	s.saved, s.closed = true, true
	if s.onFinish != nil {
		s.onFinish(ctx, true)
	}
	return nil
}

// Discard drops the trip without persisting it.
func (s *Summary) Discard(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if s.saved {
			return fmt.Errorf("capture.Summary.Discard: %w: trip already saved", domain.ErrConflict)
		}
		return nil
	}
	s.gw.Discard(s.trip)
	s.closed = true
	if s.onFinish != nil {
		s.onFinish(ctx, false)
	}
	return nil
}
