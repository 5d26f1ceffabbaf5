// Package retry provides a reusable bounded-backoff policy for single HTTP
// calls against rate-limited providers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRateLimitExhausted is returned when every attempt was rejected with a
// rate-limit response. Callers can show a "try again later" message instead
// of a generic failure.
var ErrRateLimitExhausted = errors.New("rate limit exhausted")

// ProviderError is a non-retryable (or retries-exhausted) provider failure.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.Status, e.Body)
	}
	return fmt.Sprintf("%s API error (%d)", e.Provider, e.Status)
}

// sleepFunc is injectable for tests.
var sleepFunc = sleep

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Policy retries a single call with exponential backoff while the retryable
// predicate holds. Delays are BaseDelay, 2*BaseDelay, 4*BaseDelay, ...
type Policy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	BaseDelay  time.Duration
	// Retryable decides whether the error from one attempt is worth
	// retrying. Nil means never retry.
	Retryable func(error) bool
}

// DefaultPolicy matches the providers' published rate-limit guidance:
// up to 3 retries at 2s, 4s, 8s.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		Retryable:  retryable,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or retries are
// exhausted. Exhaustion on a retryable error surfaces ErrRateLimitExhausted
// wrapped with the last error.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := p.BaseDelay << (attempt - 1)
			if err := sleepFunc(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable == nil || !p.Retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrRateLimitExhausted, lastErr)
}

// RateLimited marks an error as a retryable rate-limit rejection.
type RateLimited struct {
	Provider string
}

func (e *RateLimited) Error() string {
	return fmt.Sprintf("%s: rate limited (429)", e.Provider)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	var rl *RateLimited
	return errors.As(err, &rl)
}
