package helpers

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"pair-analytics/src/logger"
)

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff attempts fn up to maxRetries times with exponential backoff
// starting at baseDelay. It stops early when ctx is done.
func RetryWithBackoff[T any](
	ctx context.Context,
	operation string,
	maxRetries int,
	baseDelay time.Duration,
	log *logger.Logger,
	fn func(ctx context.Context) (T, error),
) (T, error) {
	if maxRetries < 1 {
		maxRetries = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = baseDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxElapsedTime = 0
	if policy.MaxInterval < baseDelay {
		policy.MaxInterval = baseDelay
	}
	b := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(maxRetries-1)), ctx)

	attempt := 0
	notify := func(err error, delay time.Duration) {
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt, maxRetries, operation, err, delay)
		}
	}

	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		return fn(ctx)
	}, b, notify)
}
