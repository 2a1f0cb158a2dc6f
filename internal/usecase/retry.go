package usecase

import (
	"context"
	"fmt"
	"time"

	"fermi-notifier/internal/config"
	"fermi-notifier/internal/domain"
)

// Sleeper waits for d or until ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

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

// retryHook observes a failed attempt that will be retried after delay.
type retryHook func(attempt int, delay time.Duration, err error)

// retry runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent, or ctx ends. It returns the number of attempts made.
func retry(ctx context.Context, policy config.RetryConfig, sleep Sleeper, onRetry retryHook, fn func(attempt int) error) (int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	attempts := 0
	for attempts < maxAttempts {
		if err := ctx.Err(); err != nil {
			return attempts, runEnded(err, lastErr)
		}
		attempts++
		lastErr = fn(attempts)
		if lastErr == nil {
			return attempts, nil
		}
		if !domain.Retryable(lastErr) {
			return attempts, lastErr
		}
		if attempts == maxAttempts {
			break
		}
		delay := policy.Backoff(attempts)
		if onRetry != nil {
			onRetry(attempts, delay, lastErr)
		}
		if err := sleep(ctx, delay); err != nil {
			return attempts, runEnded(err, lastErr)
		}
	}
	return attempts, fmt.Errorf("after %d attempts: %w", attempts, lastErr)
}

func runEnded(ctxErr, lastErr error) error {
	if ctxErr == context.DeadlineExceeded {
		if lastErr != nil {
			return fmt.Errorf("%w (last error: %v)", domain.ErrTimeout, lastErr)
		}
		return domain.ErrTimeout
	}
	if lastErr != nil {
		return fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
	}
	return ctxErr
}
