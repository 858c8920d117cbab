package services

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	OrphanRetryInitialInterval = time.Minute
	OrphanRetryMultiplier      = 2.0
	OrphanRetryMaxInterval     = 24 * time.Hour
)

// OrphanRetryDelay returns the wait before deletion attempt number
// retryCount+1: 1m, 2m, 4m ... capped at 24h, without jitter.
func OrphanRetryDelay(retryCount int) time.Duration {
	if retryCount < 1 {
		retryCount = 1
	}

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(OrphanRetryInitialInterval),
		backoff.WithMultiplier(OrphanRetryMultiplier),
		backoff.WithMaxInterval(OrphanRetryMaxInterval),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)

	delay := b.NextBackOff()
	for i := 1; i < retryCount && delay < OrphanRetryMaxInterval; i++ {
		delay = b.NextBackOff()
	}
	return delay
}

// NextOrphanRetryAt schedules the next deletion attempt after a failure at now
func NextOrphanRetryAt(now time.Time, retryCount int) time.Time {
	return now.Add(OrphanRetryDelay(retryCount))
}
