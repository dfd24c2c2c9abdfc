// Package ratelimit enforces the minimum interval between outbound requests
// to the rechtspraak.nl content API.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/opendatacollection/rechtspraak-scraper/internal/metrics"
)

// Limiter serializes outbound requests behind a single process-wide timer.
// With burst 1 the first call never blocks and every later call waits until
// at least the configured interval has elapsed since the previous one,
// independent of how long parsing or storage took in between.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter with the given minimum inter-request interval.
// A non-positive interval disables throttling.
func New(interval time.Duration) *Limiter {
	r := rate.Inf
	if interval > 0 {
		r = rate.Every(interval)
	}
	return &Limiter{limiter: rate.NewLimiter(r, 1)}
}

// Throttle blocks until the minimum interval since the previous call has
// elapsed, or until the context is canceled.
func (l *Limiter) Throttle(ctx context.Context) error {
	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveThrottleDelay(waited)
	}
	return nil
}
