// Package retry provides a small, injectable retry policy for the
// optimistic-concurrency commit path. The policy is explicit data (attempt
// cap, backoff function) plus pluggable sleep and randomness so tests can
// drive it with a fake clock and a seeded source.
package retry

import (
	"context"
	"math/rand"
	"time"
)

// Policy bounds and paces retries of an operation.
//
// MaxAttempts is the total number of tries, including the first. Backoff
// maps a 1-based completed attempt number to the pause before the next try.
// Sleep defaults to a context-aware time.Sleep and exists as a seam for
// tests.
type Policy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// JitterBackoff returns a backoff function yielding base plus a uniformly
// random jitter in [0, jitter), independent of the attempt number. rng may
// be nil, in which case the package-level source is used.
func JitterBackoff(base, jitter time.Duration, rng *rand.Rand) func(int) time.Duration {
	return func(int) time.Duration {
		if jitter <= 0 {
			return base
		}
		if rng != nil {
			return base + time.Duration(rng.Int63n(int64(jitter)))
		}
		return base + time.Duration(rand.Int63n(int64(jitter)))
	}
}

// Do runs fn up to p.MaxAttempts times, pausing per p.Backoff between tries.
// Only errors for which retryable returns true are retried; any other error,
// or exhaustion of the attempt budget, surfaces to the caller unchanged.
// Context cancellation during a pause aborts with the context error.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil || retryable == nil || !retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}
		var pause time.Duration
		if p.Backoff != nil {
			pause = p.Backoff(attempt)
		}
		if serr := sleep(ctx, pause); serr != nil {
			return serr
		}
	}
	return err
}

// sleepCtx pauses for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
