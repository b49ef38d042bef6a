// Package fuel looks up the retail fuel price in effect on a given date.
// Lookups run as cancellable tasks so a capture flow can abandon one when it
// is torn down; a result that arrives afterwards is dropped.
package fuel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkordes/carless/internal/domain"
	"github.com/pkordes/carless/internal/repo"
)

// Finder resolves the fuel price for a date. It returns domain.ErrNotFound
// when no price is known for that week or any earlier one.
type Finder interface {
	FuelPrice(ctx context.Context, date time.Time) (domain.FuelPrice, error)
}

// FinderFunc adapts a plain function to Finder.
type FinderFunc func(ctx context.Context, date time.Time) (domain.FuelPrice, error)

func (f FinderFunc) FuelPrice(ctx context.Context, date time.Time) (domain.FuelPrice, error) {
	return f(ctx, date)
}

// RepoFinder serves lookups from the fuel_prices table.
type RepoFinder struct {
	prices repo.FuelPriceRepo
}

// NewRepoFinder returns a Finder backed by the repository.
func NewRepoFinder(prices repo.FuelPriceRepo) *RepoFinder {
	return &RepoFinder{prices: prices}
}

func (f *RepoFinder) FuelPrice(ctx context.Context, date time.Time) (domain.FuelPrice, error) {
	p, err := f.prices.FindForDate(ctx, truncateDay(date))
	if err != nil {
		return domain.FuelPrice{}, fmt.Errorf("fuel.RepoFinder.FuelPrice: %w", err)
	}
	return p, nil
}

// truncateDay maps date to UTC midnight of the same calendar day.
func truncateDay(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Task is one in-flight lookup. Its result is delivered at most once.
type Task struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu       sync.Mutex
	price    domain.FuelPrice
	err      error
	canceled bool
}

// Lookup starts resolving the price for date in the background.
// The lookup is bound to ctx and to the task's own Cancel.
func Lookup(ctx context.Context, f Finder, date time.Time) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer cancel()
		p, err := f.FuelPrice(ctx, date)

		t.mu.Lock()
		if t.canceled {
			err = context.Canceled
		}
		t.price, t.err = p, err
		t.mu.Unlock()
		close(t.done)
	}()
	return t
}

// Done is closed once the lookup has finished or been cancelled.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel abandons the lookup. A result that arrives later is discarded and
// Wait reports context.Canceled. Cancel is safe to call more than once.
func (t *Task) Cancel() {
	t.mu.Lock()
	t.canceled = true
	t.mu.Unlock()
	t.cancel()
}

// Wait blocks until the lookup finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) (domain.FuelPrice, error) {
	select {
	case <-t.done:
	case <-ctx.Done():
		return domain.FuelPrice{}, ctx.Err()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.canceled {
		return domain.FuelPrice{}, context.Canceled
	}
	return t.price, t.err
}
