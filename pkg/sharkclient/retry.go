package sharkclient

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nimbusstore/gateway/internal/logger"
)

// RetryConfig bounds the jittered exponential backoff used for transport-level
// retries (§4.8: "bounded retry with jittered backoff for transport-level errors,
// not for application-level 4xx").
type RetryConfig struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// withRetry runs fn up to cfg.MaxAttempts times, retrying only when isRetryableError
// reports the failure as transport-level, via cenkalti/backoff/v4's exponential
// backoff with jitter (RandomizationFactor defaults to 0.5).
func withRetry(ctx context.Context, cfg RetryConfig, metrics Metrics, operation, sharkID string, fn func() error) error {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	eb := backoff.NewExponentialBackOff()
	if cfg.InitialBackoff > 0 {
		eb.InitialInterval = cfg.InitialBackoff
	}
	if cfg.MaxBackoff > 0 {
		eb.MaxInterval = cfg.MaxBackoff
	}
	eb.MaxElapsedTime = 0 // bounded by attempt count below, not wall-clock

	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(maxAttempts-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		if attempt < maxAttempts {
			recordRetry(metrics, operation, sharkID, attempt)
			logger.DebugCtx(ctx, "sharkclient retrying", logger.SharkID(sharkID), logger.Operation(operation), logger.Attempt(attempt), logger.Err(err))
		}
		return err
	}, policy)
}
