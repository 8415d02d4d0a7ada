package llm

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds one logical model call: a fixed number of attempts with
// a fixed pause between them, each attempt under its own deadline.
type RetryPolicy struct {
	Attempts       int
	Backoff        time.Duration
	AttemptTimeout time.Duration
}

// DefaultRetryPolicy matches the operating assumption of one quick retry:
// two attempts total, half a second apart, 30s per attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:       2,
		Backoff:        500 * time.Millisecond,
		AttemptTimeout: 30 * time.Second,
	}
}

// Attempt runs fn under the policy. Non-retryable failures (rate limits,
// auth, bad request) return immediately; the last error wins otherwise.
func Attempt[T any](ctx context.Context, policy RetryPolicy, logger *slog.Logger, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-time.After(policy.Backoff):
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if policy.AttemptTimeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, policy.AttemptTimeout)
		}

		start := time.Now()
		out, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err

		logger.Warn("model call failed",
			"op", op,
			"attempt", i+1,
			"latency_ms", time.Since(start).Milliseconds(),
			"retryable", Retryable(err),
			"error", err)

		if !Retryable(err) {
			break
		}
	}
	return zero, lastErr
}
