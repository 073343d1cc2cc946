// Package retry provides the capped linear backoff used for bus reconnects
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return errors.As(err, &nre)
}

// Linear grows the delay by Step per attempt and never exceeds Max.
type Linear struct {
	Step time.Duration
	Max  time.Duration
}

// Reconnect is the policy shared by every bus transport link:
// attempt × 50ms, capped at 2s.
func Reconnect() Linear {
	return Linear{
		Step: 50 * time.Millisecond,
		Max:  2 * time.Second,
	}
}

// Delay returns the wait before the given 1-based attempt.
func (l Linear) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if l.Step <= 0 {
		return 0
	}
	// Clamp before multiplying so large attempt counts cannot overflow.
	if l.Max > 0 && int64(attempt) >= int64(l.Max/l.Step) {
		return l.Max
	}
	return time.Duration(attempt) * l.Step
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Forever calls fn until it succeeds, returns a NonRetryable error, or ctx is done.
// fn receives the 1-based attempt number; the wait before attempt n+1 is policy.Delay(n).
func Forever(ctx context.Context, policy Linear, fn func(attempt int) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if err == nil {
			return nil
		}
		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		}
		if err := Sleep(ctx, policy.Delay(attempt)); err != nil {
			return fmt.Errorf("retry cancelled during backoff for attempt %d: %w", attempt+1, err)
		}
	}
}
