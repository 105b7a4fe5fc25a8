package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles requests to the upstream rate source. All exchanger
// fetchers share one limiter so concurrent cycles stay polite regardless
// of how many exchangers are configured.
//
// The limiter is injected into each fetcher rather than held as a package
// singleton, which keeps the pipeline testable in isolation.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a limiter allowing requestsPerSecond sustained requests with
// the given burst. A non-positive rate disables limiting.
func New(requestsPerSecond float64, burst int) *Limiter {
	limit := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(limit, burst)}
}

// Wait blocks until the limiter permits a request or the context is
// cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
