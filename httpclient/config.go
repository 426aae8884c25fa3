package httpclient

import (
	"errors"
	"time"

	"github.com/fernandomesquita/stenopro/resilience"
)

const defaultTimeout = 30 * time.Second

// Config configures a Client. Only BaseURL, Timeout and Headers are read
// from files; the policies are set by the provider that owns the client.
type Config struct {
	BaseURL string            `yaml:"base_url" mapstructure:"base_url"`
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`
	// Timeout bounds a single attempt. Provider calls usually carry a
	// longer context deadline on top.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`

	Auth           *AuthConfig                      `yaml:"-" mapstructure:"-"`
	Retry          *resilience.RetryConfig          `yaml:"-" mapstructure:"-"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"-" mapstructure:"-"`
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"-" mapstructure:"-"`
}

func (c *Config) ApplyDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return errors.New("httpclient: timeout must be positive")
	}
	return nil
}

// DefaultRetryConfig retries only what IsRetryable accepts.
func DefaultRetryConfig() *resilience.RetryConfig {
	cfg := resilience.DefaultRetryConfig()
	cfg.RetryIf = IsRetryable
	return &cfg
}

// tripsBreaker leaves 4xx answers out of the failure count: a rejected
// upload says nothing about the provider's health.
func tripsBreaker(err error) bool {
	return IsServerError(err) || IsConnection(err) || IsTimeout(err)
}

func DefaultCircuitBreakerConfig() *resilience.CircuitBreakerConfig {
	return &resilience.CircuitBreakerConfig{
		Enabled:     true,
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		IsFailure:   tripsBreaker,
	}
}
