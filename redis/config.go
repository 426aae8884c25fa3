package redis

import (
	"errors"
	"fmt"
	"time"

	"github.com/fernandomesquita/stenopro/security"
)

// Config is the redis section. When enabled, run locks are leased in Redis
// so several replicas can share one database.
type Config struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Addr      string `yaml:"addr" mapstructure:"addr"`
	Password  string `yaml:"password" mapstructure:"password"`
	DB        int    `yaml:"db" mapstructure:"db"`
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix"`

	// LockTTL is the lease on a record's run lock. Held leases are renewed
	// every third of it.
	LockTTL time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`

	PoolSize        int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns    int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	PoolTimeout     time.Duration `yaml:"pool_timeout" mapstructure:"pool_timeout"`
	ConnMaxIdleTime time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	// ConnMaxLifetime of zero keeps connections forever.
	ConnMaxLifetime time.Duration `yaml:"max_conn_age" mapstructure:"max_conn_age"`

	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`

	MaxRetries      int           `yaml:"max_retries" mapstructure:"max_retries"`
	MinRetryBackoff time.Duration `yaml:"min_retry_backoff" mapstructure:"min_retry_backoff"`
	MaxRetryBackoff time.Duration `yaml:"max_retry_backoff" mapstructure:"max_retry_backoff"`

	TLS security.TLSConfig `yaml:"tls" mapstructure:"tls"`
}

func orDefault[T comparable](v *T, def T) {
	var zero T
	if *v == zero {
		*v = def
	}
}

// ApplyDefaults fills unset fields. Pool timeouts and connection ages left
// at zero keep the go-redis defaults.
func (c *Config) ApplyDefaults() {
	orDefault(&c.Addr, "localhost:6379")
	orDefault(&c.KeyPrefix, "stenopro")
	orDefault(&c.LockTTL, 30*time.Second)
	orDefault(&c.PoolSize, 10)
	orDefault(&c.MinIdleConns, 2)
	orDefault(&c.MaxRetries, 3)
	orDefault(&c.MinRetryBackoff, 8*time.Millisecond)
	orDefault(&c.MaxRetryBackoff, 512*time.Millisecond)
	orDefault(&c.DialTimeout, 5*time.Second)
	orDefault(&c.ReadTimeout, 3*time.Second)
	orDefault(&c.WriteTimeout, 3*time.Second)
}

// Validate is a no-op for a disabled section.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.PoolSize <= 0 {
		return fmt.Errorf("redis.pool_size must be positive (got: %d)", c.PoolSize)
	}
	if c.LockTTL < time.Second {
		return fmt.Errorf("redis.lock_ttl must be at least 1s (got: %s)", c.LockTTL)
	}
	if c.MinRetryBackoff > c.MaxRetryBackoff && c.MaxRetryBackoff > 0 {
		return fmt.Errorf("redis.min_retry_backoff %s exceeds max_retry_backoff %s", c.MinRetryBackoff, c.MaxRetryBackoff)
	}
	return c.TLS.Validate()
}
