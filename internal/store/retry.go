package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/carless/internal/domain"
)

// RetryPolicy controls how often a failed commit is attempted before the
// failure is surfaced to the caller. MaxAttempts of 1 (or 0) means no retry.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// CommitError reports a trip that could not be made durable. The in-memory
// trip is left unpersisted and still registered as pending.
type CommitError struct {
	TripID   uuid.UUID
	Attempts int
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit trip %s failed after %d attempt(s): %v", e.TripID, e.Attempts, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// do runs fn under the policy. Validation errors are never retried.
func (p RetryPolicy) do(ctx context.Context, fn func(context.Context) error) (attempts int, err error) {
	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	wait := p.Backoff
	if wait <= 0 {
		wait = time.Millisecond
	}
	b := retry.WithMaxRetries(retries, retry.NewConstant(wait))

	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempts++
		if err := fn(ctx); err != nil {
			if errors.Is(err, domain.ErrValidation) {
				return err
			}
			return retry.RetryableError(err)
		}
		return nil
	})
	return attempts, err
}
