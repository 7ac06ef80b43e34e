package infra

import (
	"time"
)

// BackoffPolicy returns the delay before reconnect attempt retryCount (0-based).
type BackoffPolicy func(retryCount int) time.Duration

// FixedBackoff waits the same delay before every reconnect.
func FixedBackoff(delay time.Duration) BackoffPolicy {
	return func(int) time.Duration { return delay }
}

// ExponentialBackoff returns base * 2^retryCount, capped at max.
// If retryCount is negative, it returns base.
func ExponentialBackoff(base, max time.Duration) BackoffPolicy {
	return func(retryCount int) time.Duration {
		if retryCount < 0 {
			return base
		}

		// 2^30 seconds is already far beyond any sensible max.
		if retryCount > 30 {
			return max
		}

		backoff := base * time.Duration(1<<retryCount)
		if backoff > max || backoff <= 0 {
			return max
		}
		return backoff
	}
}
