package debate

import (
	"context"
	"time"

	"github.com/investlens/lenscore/internal/llm"
)

// retryPolicy bounds re-issued model calls. Only transport-level
// failures (timeout, network) are retried; auth and rate-limit errors
// come back immediately.
type retryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

func defaultRetryPolicy(maxRetries int, backoff time.Duration) retryPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return retryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  backoff,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
	}
}

// withRetry executes fn with exponential backoff, stopping early on
// non-retryable classifications or context cancellation.
func withRetry(ctx context.Context, policy retryPolicy, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := policy.BaseDelay
			for i := 1; i < attempt; i++ {
				delay = time.Duration(float64(delay) * policy.Multiplier)
			}
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return lastErr
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !llm.Classify(err).Retryable() {
			return err
		}
	}

	return lastErr
}
