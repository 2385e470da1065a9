package github

import (
	"context"
	"time"
)

// RetryPolicy bounds the retry-with-backoff wrapper.
type RetryPolicy struct {
	MaxRetries int           // additional attempts beyond the first
	BaseDelay  time.Duration // delay doubles per attempt
}

// retryWithBackoff runs op until it succeeds, fails terminally, or the
// retry budget is exhausted. Only retryable kinds (service unavailable,
// network) are retried; all others propagate on first occurrence. The
// context is checked before every attempt, including the first, so an
// already-cancelled call never invokes op.
func retryWithBackoff[T any](ctx context.Context, policy RetryPolicy, opContext string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, classify(ctx, err, opContext)
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		clsErr := classify(ctx, err, opContext)
		lastErr = clsErr
		if !clsErr.Retryable() || attempt == policy.MaxRetries {
			return zero, clsErr
		}

		if err := sleepCtx(ctx, policy.BaseDelay<<attempt); err != nil {
			return zero, classify(ctx, err, opContext)
		}
	}
	return zero, lastErr
}

// sleepCtx waits for d or until the context is done, whichever is first.
func sleepCtx(ctx context.Context, d time.Duration) error {
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
