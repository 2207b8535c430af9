// Package retry runs an operation with bounded attempts and backoff measured
// on a quartz clock.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/coder/quartz"
)

// Policy bounds a retried operation.
//
// Delays grow exponentially from MinDelay and are capped at MaxDelay. With
// Jitter set each delay is drawn uniformly from [MinDelay, MaxDelay] instead.
// MaxElapsed, when positive, stops retrying once that much clock time has
// passed since the first attempt.
type Policy struct {
	Attempts   int
	MinDelay   time.Duration
	MaxDelay   time.Duration
	MaxElapsed time.Duration
	Jitter     bool
}

// ErrExhausted wraps the last error once every attempt has failed
var ErrExhausted = errors.New("retries exhausted")

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not retryable; Do returns it unwrapped immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

// Delay returns the wait before the given retry (0 based)
func (p Policy) Delay(attempt int) time.Duration {
	if p.Jitter && p.MaxDelay > p.MinDelay {
		return p.MinDelay + rand.N(p.MaxDelay-p.MinDelay+1)
	}
	d := p.MinDelay
	for i := 0; i < attempt && d < p.MaxDelay; i++ {
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do calls fn until it succeeds, returns a Permanent error, the attempts run
// out or ctx is done.
func Do(ctx context.Context, clock quartz.Clock, p Policy, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	start := clock.Now()

	var lastErr error
	tried := 0
	for attempt := 0; attempt < attempts; attempt++ {
		tried++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var perm permanent
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		if p.MaxElapsed > 0 && clock.Since(start) >= p.MaxElapsed {
			break
		}

		timer := clock.NewTimer(p.Delay(attempt), "retry")
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, tried, lastErr)
}
