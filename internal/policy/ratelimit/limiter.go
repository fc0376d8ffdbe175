// Package ratelimit implements token bucket limiters for external API quotas.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/JakeFAU/place-menu-crawler/internal/metrics"
)

// Config holds rate limiter configuration.
type Config struct {
	// RPS is the sustained request rate per key. Zero or negative disables limiting.
	RPS   float64
	Burst int
}

// Limiter manages one token bucket per key (an API host or quota name).
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
}

// New creates a new Limiter.
func New(cfg Config) *Limiter {
	r := rate.Limit(cfg.RPS)
	if cfg.RPS <= 0 {
		r = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     r,
		burst:    burst,
	}
}

// FromInterval builds a Config that allows one request per interval.
func FromInterval(interval time.Duration) Config {
	if interval <= 0 {
		return Config{}
	}
	return Config{RPS: float64(time.Second) / float64(interval), Burst: 1}
}

// Wait blocks until a token is available for key, respecting the context.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	if key == "" {
		key = "default"
	}
	l.mu.Lock()
	limiter, exists := l.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(l.rate, l.burst)
		l.limiters[key] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		metrics.ObserveRateLimitDelay(key, waited)
	}
	return nil
}
