package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/resilience"
)

// RateLimitConfig gives every caller its own token bucket.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per key. Zero disables limiting.
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	// Burst defaults to RequestsPerMinute.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// KeyFunc picks the bucket. Defaults to SubjectKey.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// RateLimit rejects requests over the caller's budget with 429 and a
// Retry-After hint.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.RequestsPerMinute
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = SubjectKey
	}

	buckets := &bucketSet{
		cfg: resilience.RateLimiterConfig{
			Enabled: true,
			Rate:    float64(cfg.RequestsPerMinute) / 60,
			Burst:   cfg.Burst,
		},
		idle:  10 * time.Minute,
		items: make(map[string]*bucket),
	}
	retryAfter := strconv.Itoa(int(math.Ceil(60 / float64(cfg.RequestsPerMinute))))

	return func(c *gin.Context) {
		if !buckets.allow(cfg.KeyFunc(c), time.Now()) {
			c.Header("Retry-After", retryAfter)
			abort(c, apperrors.RateLimited())
			return
		}
		c.Next()
	}
}

// IPBasedKey buckets by client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

// SubjectKey buckets by the token subject set by Auth, or by client IP for
// anonymous callers.
func SubjectKey(c *gin.Context) string {
	if s := c.GetString(ContextSubject); s != "" {
		return "sub:" + s
	}
	return "ip:" + c.ClientIP()
}

type bucket struct {
	limiter *resilience.RateLimiter
	seen    time.Time
}

type bucketSet struct {
	cfg  resilience.RateLimiterConfig
	idle time.Duration

	mu    sync.Mutex
	items map[string]*bucket
	swept time.Time
}

// allow evicts idle buckets at most once per idle period, inline, so the
// middleware owns no goroutine.
func (s *bucketSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	if now.Sub(s.swept) > s.idle {
		for k, b := range s.items {
			if now.Sub(b.seen) > s.idle {
				delete(s.items, k)
			}
		}
		s.swept = now
	}
	b, ok := s.items[key]
	if !ok {
		b = &bucket{limiter: resilience.NewRateLimiter(s.cfg)}
		s.items[key] = b
	}
	b.seen = now
	s.mu.Unlock()
	return b.limiter.Allow()
}
