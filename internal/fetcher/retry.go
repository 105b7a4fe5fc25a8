package fetcher

import (
	"context"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = 1 * time.Second
	defaultMaxDelay   = 30 * time.Second
)

// RetryPolicy parameterizes the retry wrapper: how many extra attempts to
// make after the first, and how the backoff delay grows between them.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Jitter spreads delays over a 75%-125% band so concurrent fetchers
	// don't hammer the upstream in lockstep.
	Jitter bool
}

// DefaultRetryPolicy returns the policy used when configuration supplies
// no override.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
		Jitter:     true,
	}
}

// Delay returns the backoff delay before retry number attempt (0-indexed):
// BaseDelay doubled per attempt, capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	max := p.MaxDelay
	if max <= 0 {
		max = defaultMaxDelay
	}

	delay := base << uint(attempt)
	if delay > max || delay <= 0 {
		delay = max
	}
	if p.Jitter {
		delay = time.Duration(float64(delay) * (0.75 + rand.Float64()*0.5))
	}
	return delay
}

// Retry runs op, retrying transient failures with exponential backoff.
// Permanent failures and context cancellation return immediately. Once
// MaxRetries extra attempts fail, the last cause is wrapped in a
// KindExhausted error.
//
// Retry is generic over the operation's result so any fallible call can be
// wrapped, not just HTTP fetches.
func Retry[T any](ctx context.Context, policy RetryPolicy, log logrus.FieldLogger, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}
		if attempt == maxRetries {
			break
		}

		delay := policy.Delay(attempt)
		if log != nil {
			log.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"delay":   delay.String(),
			}).Warnf("attempt failed, retrying: %v", err)
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, NewExhaustedError(maxRetries+1, lastErr)
}
