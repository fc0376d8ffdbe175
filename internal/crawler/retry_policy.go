package crawler

import (
	"context"
	"crypto/rand"
	"errors"
	"math"
	"math/big"
	"time"
)

// navigationRetry decides whether a failed page load is worth another
// attempt and how long to back off first.
type navigationRetry struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

func newNavigationRetry() navigationRetry {
	return navigationRetry{
		maxAttempts: 3,
		baseDelay:   500 * time.Millisecond,
		maxDelay:    5 * time.Second,
	}
}

// ShouldRetry reports whether attempt (1-based) may be followed by another.
// Cancellation is never retried.
func (p navigationRetry) ShouldRetry(err error, attempt int) bool {
	if err == nil || attempt >= p.maxAttempts {
		return false
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// Backoff returns a jittered delay in [d/2, d) where d doubles per attempt.
func (p navigationRetry) Backoff(attempt int) time.Duration {
	delay := float64(p.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(p.maxDelay) {
		delay = float64(p.maxDelay)
	}
	half := time.Duration(delay / 2)
	return half + jitter(half)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
