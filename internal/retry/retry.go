// Package retry provides a bounded retry loop with exponential or fixed
// backoff used by every call to an external service.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes how many times an operation is attempted and how long to
// wait between attempts. The wait after attempt n is BaseDelay*Multiplier^(n-1).
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64

	// Sleep replaces the real timer; tests pass a no-op.
	Sleep SleepFunc

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, err error, wait time.Duration)

	// OnGiveUp is called by WithFallback before it returns the fallback.
	OnGiveUp func(err error)
}

// Exponential returns a policy doubling the delay after each failure.
func Exponential(attempts int, base time.Duration) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: base, Multiplier: 2}
}

// Fixed returns a policy waiting the same delay between attempts.
func Fixed(attempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: attempts, BaseDelay: delay, Multiplier: 1}
}

// Delay returns the wait after the given 1-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult <= 0 {
		mult = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1)))
}

func (p Policy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Do calls fn until it succeeds, the attempts run out, or ctx is cancelled.
// The returned error wraps ErrExhausted or the context error.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	total := p.attempts()
	var lastErr error
	for attempt := 1; attempt <= total; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("attempt %d/%d: %w", attempt, total, err)
		}

		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == total {
			break
		}
		wait := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if err := sleep(ctx, wait); err != nil {
			return zero, fmt.Errorf("attempt %d/%d: %w", attempt, total, err)
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, total, lastErr)
}

// WithFallback runs Do and returns fallback instead of an error, reporting
// the error to p.OnGiveUp.
func WithFallback[T any](ctx context.Context, p Policy, fallback T, fn func(ctx context.Context) (T, error)) T {
	v, err := Do(ctx, p, fn)
	if err != nil {
		if p.OnGiveUp != nil {
			p.OnGiveUp(err)
		}
		return fallback
	}
	return v
}

// Sleep waits for d, returning early with ctx.Err() on cancellation.
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

// NoSleep is a SleepFunc that returns immediately.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
