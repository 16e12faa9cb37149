// ABOUTME: Tests for retry utilities including capped exponential backoff
// ABOUTME: Validates backoff bounds, jitter, permanent errors and cancellation
package util

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff_ZeroRetry(t *testing.T) {
	if result := CalculateBackoff(time.Second, 4*time.Second, 0); result != 0 {
		t.Errorf("expected 0 for retry 0, got %v", result)
	}
}

func TestCalculateBackoff_NegativeRetryReturnsZero(t *testing.T) {
	if result := CalculateBackoff(time.Second, 4*time.Second, -3); result != 0 {
		t.Errorf("expected 0 for negative retry, got %v", result)
	}
}

func TestCalculateBackoff_FirstRetry(t *testing.T) {
	base := 500 * time.Millisecond
	result := CalculateBackoff(base, 4*time.Second, 1)

	// First retry: 500ms with ±25% jitter = 375ms to 625ms
	if result < 375*time.Millisecond || result > 625*time.Millisecond {
		t.Errorf("expected backoff between 375ms and 625ms, got %v", result)
	}
}

func TestCalculateBackoff_ExponentialGrowth(t *testing.T) {
	base := 100 * time.Millisecond

	for retry := 1; retry <= 4; retry++ {
		expectedBase := base * time.Duration(1<<uint(retry-1))
		minExpected := expectedBase * 3 / 4
		maxExpected := expectedBase * 5 / 4

		result := CalculateBackoff(base, time.Minute, retry)
		if result < minExpected || result > maxExpected {
			t.Errorf("retry %d: expected backoff between %v and %v, got %v",
				retry, minExpected, maxExpected, result)
		}
	}
}

func TestCalculateBackoff_NeverExceedsCap(t *testing.T) {
	for i := 0; i < 200; i++ {
		result := CalculateBackoff(500*time.Millisecond, 4*time.Second, 10)
		if result > 4*time.Second {
			t.Fatalf("backoff %v exceeds 4s cap", result)
		}
		if result < 3*time.Second {
			t.Fatalf("backoff %v below cap minus jitter", result)
		}
	}
}

func TestCalculateBackoff_HighRetryDoesNotOverflow(t *testing.T) {
	result := CalculateBackoff(time.Millisecond, 4*time.Second, 100)
	if result < 0 || result > 4*time.Second {
		t.Errorf("expected backoff within (0, 4s] for high retry, got %v", result)
	}
}

func fastPolicy(attempts int) Policy {
	return Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	attempts, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) error {
		calls++
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3 and 3", attempts, calls)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("still down")
	attempts, err := Do(context.Background(), fastPolicy(3), func(ctx context.Context, attempt int) error {
		return sentinel
	})

	if !errors.Is(err, sentinel) {
		t.Errorf("Do() error = %v, want %v", err, sentinel)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	sentinel := errors.New("bad request")
	calls := 0
	attempts, err := Do(context.Background(), fastPolicy(5), func(ctx context.Context, attempt int) error {
		calls++
		return Permanent(sentinel)
	})

	if calls != 1 || attempts != 1 {
		t.Errorf("calls = %d, attempts = %d, want 1 and 1", calls, attempts)
	}
	if err != sentinel {
		t.Errorf("Do() error = %v, want unwrapped sentinel", err)
	}
	if IsPermanent(err) {
		t.Error("returned error should have the Permanent wrapper removed")
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := Policy{Attempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, policy, func(ctx context.Context, attempt int) error {
			return errors.New("transient")
		})
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Do() error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Do() did not return after cancellation")
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Do(context.Background(), Policy{}, func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("fail")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
