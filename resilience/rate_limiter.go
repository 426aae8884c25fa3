package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token bucket.
type RateLimiterConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Rate is the sustained number of calls per second.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
	// Burst is the bucket size.
	Burst int `yaml:"burst" mapstructure:"burst"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *RateLimiterConfig) ApplyDefaults() {
	if c.Rate <= 0 {
		c.Rate = 1
	}
	if c.Burst <= 0 {
		c.Burst = int(c.Rate)
		if c.Burst < 1 {
			c.Burst = 1
		}
	}
}

// RateLimiter is a token bucket. Wait reserves a token and sleeps until it is due.
type RateLimiter struct {
	cfg RateLimiterConfig
	now func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a full bucket.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	cfg.ApplyDefaults()
	return &RateLimiter{cfg: cfg, now: time.Now, tokens: float64(cfg.Burst), last: time.Now()}
}

// Allow takes a token if one is available right now.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	rl.mu.Lock()
	rl.refill()
	rl.tokens--
	var wait time.Duration
	if rl.tokens < 0 {
		wait = time.Duration(-rl.tokens / rl.cfg.Rate * float64(time.Second))
	}
	rl.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		rl.mu.Lock()
		rl.tokens++
		rl.mu.Unlock()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	rl.tokens += now.Sub(rl.last).Seconds() * rl.cfg.Rate
	rl.last = now
	if rl.tokens > float64(rl.cfg.Burst) {
		rl.tokens = float64(rl.cfg.Burst)
	}
}
