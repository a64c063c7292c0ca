package utils

import (
	"math"
	"math/rand"
	"time"
)

// CalculateExponentialBackoffWithJitter returns base doubled once per retry after the first,
// with about 12.5% jitter either way, never above max (max <= 0 means no cap).
// count is 1-based; zero or negative counts give no delay.
func CalculateExponentialBackoffWithJitter(count int, base time.Duration, max time.Duration) time.Duration {
	if count <= 0 || base <= 0 {
		return 0
	}

	// doubling stops at the cap, so huge counts neither loop long nor overflow
	delay := base
	for i := 1; i < count; i++ {
		if (max > 0 && delay >= max) || delay > math.MaxInt64/4 {
			break
		}
		delay *= 2
	}

	if spread := int64(delay / 4); spread > 0 {
		delay += time.Duration(rand.Int63n(spread)) - delay/8
	}
	if max > 0 && delay > max {
		delay = max
	}
	return delay
}
