package medic

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"
)

// RetryPolicy configures retry with exponential backoff. It holds
// configuration only — no shared state — so one policy value may be reused
// concurrently by any number of callers.
//
// Blind retry-on-any-error is deliberately impossible: an error is retried
// only when Retryable classifies it as such, so programming errors and
// permission failures that will never self-resolve surface immediately.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first call
	MaxRetries int

	// Base is the backoff base; the sleep before retry n is Base * 2^(n-1)
	Base time.Duration

	// Retryable classifies an error as worth retrying. A nil predicate
	// retries nothing.
	Retryable func(error) bool
}

// RetryableOn builds a predicate that retries only errors matching one of
// the targets with errors.Is.
func RetryableOn(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, target := range targets {
			if errors.Is(err, target) {
				return true
			}
		}
		return false
	}
}

// delay returns the backoff before the given retry (1-indexed).
func (p RetryPolicy) delay(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	return time.Duration(float64(p.Base) * math.Pow(2, float64(attempt-1)))
}

// Retry runs fn, re-attempting retryable failures with exponential backoff.
// A non-retryable error returns immediately; once attempts are exhausted the
// last error is returned unchanged, so callers can still match it with
// errors.Is/As. Sleeps between attempts respect ctx cancellation; there is no
// overall deadline across attempts — wrap the call externally for that.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Debug("retry succeeded", "attempt", attempt)
			}
			return v, nil
		}

		lastErr = err

		if policy.Retryable == nil || !policy.Retryable(err) {
			slog.Debug("not retrying", "attempt", attempt, "error", err)
			return zero, err
		}

		if attempt == attempts {
			break
		}

		delay := policy.delay(attempt)
		slog.Warn("retrying after failure",
			"attempt", attempt,
			"max_attempts", attempts,
			"delay_ms", delay.Milliseconds(),
			"error", err,
		)

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	slog.Warn("retries exhausted", "attempts", attempts, "error", lastErr)
	return zero, lastErr
}

// WrapRetry returns fn wrapped with the policy. The returned function has the
// same signature as fn.
func WrapRetry[T any](policy RetryPolicy, fn func(context.Context) (T, error)) func(context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Retry(ctx, policy, fn)
	}
}
