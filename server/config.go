package server

import (
	"fmt"

	"github.com/fernandomesquita/stenopro/server/middleware"
)

// Config holds HTTP server configuration.
type Config struct {
	Host         string `yaml:"host" mapstructure:"host"`
	Port         int    `yaml:"port" mapstructure:"port"`
	ReadTimeout  int    `yaml:"read_timeout" mapstructure:"read_timeout"`   // seconds
	WriteTimeout int    `yaml:"write_timeout" mapstructure:"write_timeout"` // seconds, 0 keeps event streams open
	IdleTimeout  int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`   // seconds
	// ShutdownTimeout bounds the graceful drain of open connections, in seconds.
	ShutdownTimeout int `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
	// MaxBodySize caps request bodies, e.g. "101MB" for a 100MB upload plus
	// form overhead.
	MaxBodySize string                     `yaml:"max_body_size" mapstructure:"max_body_size"`
	CORS        middleware.CORSConfig      `yaml:"cors" mapstructure:"cors"`
	RateLimit   middleware.RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ApplyDefaults sets sensible default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = 3000
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 300
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 120
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 5
	}
	if c.MaxBodySize == "" {
		c.MaxBodySize = "101MB"
	}
	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "Range", middleware.HeaderRequestID}
	}
	if len(c.CORS.ExposedHeaders) == 0 {
		c.CORS.ExposedHeaders = []string{"Content-Range", "Accept-Ranges", "Content-Length", middleware.HeaderRequestID}
	}
	if c.CORS.MaxAge == 0 {
		c.CORS.MaxAge = 600
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535 (got: %d)", c.Port)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout must be non-negative (got: %d)", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("server.write_timeout must be non-negative (got: %d)", c.WriteTimeout)
	}
	if c.IdleTimeout < 0 {
		return fmt.Errorf("server.idle_timeout must be non-negative (got: %d)", c.IdleTimeout)
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("server.rate_limit.requests_per_minute must be non-negative (got: %d)", c.RateLimit.RequestsPerMinute)
	}
	if _, err := ParseSize(c.MaxBodySize); err != nil {
		return fmt.Errorf("server.max_body_size: %w", err)
	}
	return nil
}
