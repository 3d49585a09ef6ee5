package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter throttles sequential page fetches. The browser session calls
// Wait after every fetch so request spacing holds regardless of caller
// behavior.
type Limiter interface {
	Wait(ctx context.Context) error
}

// FixedDelayLimiter enforces a constant politeness delay between
// consecutive actions. The first call waits the full delay as well, so
// the gap after the very first fetch is not skipped. A zero delay makes
// Wait a no-op, which is what tests use.
type FixedDelayLimiter struct {
	delay      time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewFixedDelayLimiter(delay time.Duration) *FixedDelayLimiter {
	return &FixedDelayLimiter{delay: delay}
}

func (r *FixedDelayLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	wait := r.delay
	if !r.lastAction.IsZero() {
		if elapsed := time.Since(r.lastAction); elapsed < r.delay {
			wait = r.delay - elapsed
		} else {
			wait = 0
		}
	}

	if wait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	r.lastAction = time.Now()
	return nil
}
