// ABOUTME: Retry utilities for collaborator calls with capped exponential backoff
// ABOUTME: Shared by the embedder, precedent index and redline drafter
package util

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Policy configures bounded retries
type Policy struct {
	Attempts  int           // total attempts including the first, minimum 1
	BaseDelay time.Duration // delay before the second attempt
	MaxDelay  time.Duration // cap on any single delay
}

// DefaultPolicy is 3 attempts, 500ms base, capped at 4s
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}
}

// CalculateBackoff returns exponential backoff with jitter for the given retry number.
// Retry 1 waits about baseDelay, each further retry doubles it, capped at maxDelay,
// with random jitter of -25% to +25% that never exceeds the cap.
func CalculateBackoff(baseDelay, maxDelay time.Duration, retry int) time.Duration {
	if retry <= 0 || baseDelay <= 0 {
		return 0
	}
	// Cap retry to avoid overflow in bit shift
	if retry > 30 {
		retry = 30
	}
	backoff := baseDelay * time.Duration(1<<uint(retry-1))
	if maxDelay > 0 && (backoff > maxDelay || backoff <= 0) {
		backoff = maxDelay
	}
	jitter := time.Duration(rand.Int64N(int64(backoff)/2+1)) - backoff/4
	backoff += jitter
	if maxDelay > 0 && backoff > maxDelay {
		backoff = maxDelay
	}
	return backoff
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks an error as not worth retrying
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do runs fn until it succeeds, returns a permanent error, the context ends,
// or the policy's attempts are used up. It returns the number of attempts made
// and the last error, with any Permanent wrapper removed.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(CalculateBackoff(p.BaseDelay, p.MaxDelay, attempt-1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return attempt - 1, ctx.Err()
			case <-timer.C:
			}
		}
		if err := ctx.Err(); err != nil {
			return attempt - 1, err
		}

		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return attempt, nil
		}
		var p *permanentError
		if errors.As(lastErr, &p) {
			return attempt, p.err
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			if ctx.Err() != nil {
				return attempt, lastErr
			}
		}
	}
	return attempts, lastErr
}
