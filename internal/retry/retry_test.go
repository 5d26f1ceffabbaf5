package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// captureSleeps swaps the sleep function for one that records requested
// delays without waiting.
func captureSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var slept []time.Duration
	orig := sleepFunc
	sleepFunc = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	t.Cleanup(func() { sleepFunc = orig })
	return &slept
}

func TestPolicy_Do_SucceedsAfterRateLimits(t *testing.T) {
	slept := captureSleeps(t)

	attempts := 0
	p := DefaultPolicy(IsRateLimited)
	err := p.Do(context.Background(), func() error {
		attempts++
		if attempts <= 3 {
			return &RateLimited{Provider: "gemini"}
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}

	want := []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}
	if len(*slept) != len(want) {
		t.Fatalf("expected %d sleeps, got %d", len(want), len(*slept))
	}
	for i, d := range want {
		if (*slept)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*slept)[i], d)
		}
	}
}

func TestPolicy_Do_Exhaustion(t *testing.T) {
	captureSleeps(t)

	attempts := 0
	p := DefaultPolicy(IsRateLimited)
	err := p.Do(context.Background(), func() error {
		attempts++
		return &RateLimited{Provider: "gemini"}
	})

	if !errors.Is(err, ErrRateLimitExhausted) {
		t.Fatalf("expected ErrRateLimitExhausted, got %v", err)
	}
	// 1 initial attempt + 3 retries, no further attempts
	if attempts != 4 {
		t.Errorf("expected 4 attempts, got %d", attempts)
	}
}

func TestPolicy_Do_NonRetryableStopsImmediately(t *testing.T) {
	slept := captureSleeps(t)

	attempts := 0
	provErr := &ProviderError{Provider: "gemini", Status: 500}
	p := DefaultPolicy(IsRateLimited)
	err := p.Do(context.Background(), func() error {
		attempts++
		return provErr
	})

	if !errors.Is(err, error(provErr)) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
	if len(*slept) != 0 {
		t.Errorf("expected no sleeps, got %v", *slept)
	}
}

func TestPolicy_Do_ContextCancelDuringBackoff(t *testing.T) {
	orig := sleepFunc
	sleepFunc = sleep
	t.Cleanup(func() { sleepFunc = orig })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{MaxRetries: 3, BaseDelay: time.Minute, Retryable: IsRateLimited}
	err := p.Do(ctx, func() error {
		return &RateLimited{Provider: "gemini"}
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
