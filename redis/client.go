package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/fernandomesquita/stenopro/logger"
)

// Client is a go-redis client bound to a key prefix.
type Client struct {
	rdb    *goredis.Client
	log    *logger.Logger
	prefix string

	closeOnce sync.Once
	closeErr  error
}

// New builds a client from cfg. It does not dial; use Ping to check the
// server is reachable.
func New(cfg Config, log *logger.Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, errors.New("redis is disabled")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}

	opts, err := cfg.options()
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	c := &Client{rdb: goredis.NewClient(opts), log: log, prefix: cfg.KeyPrefix}
	log.Debug("Redis client created", logger.Fields("addr", cfg.Addr, "db", cfg.DB, "tls", opts.TLSConfig != nil))
	return c, nil
}

func (c Config) options() (*goredis.Options, error) {
	tc, err := c.TLS.Build()
	if err != nil {
		return nil, err
	}
	return &goredis.Options{
		Addr:            c.Addr,
		Password:        c.Password,
		DB:              c.DB,
		PoolSize:        c.PoolSize,
		MinIdleConns:    c.MinIdleConns,
		PoolTimeout:     c.PoolTimeout,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		ConnMaxLifetime: c.ConnMaxLifetime,
		DialTimeout:     c.DialTimeout,
		ReadTimeout:     c.ReadTimeout,
		WriteTimeout:    c.WriteTimeout,
		MaxRetries:      c.MaxRetries,
		MinRetryBackoff: c.MinRetryBackoff,
		MaxRetryBackoff: c.MaxRetryBackoff,
		TLSConfig:       tc,
	}, nil
}

// Ping round-trips a PING.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Key joins parts under the key prefix, e.g. "stenopro:lock:7".
func (c *Client) Key(parts ...string) string {
	if c.prefix == "" {
		return strings.Join(parts, ":")
	}
	return c.prefix + ":" + strings.Join(parts, ":")
}

// PoolStats reports connection pool usage.
func (c *Client) PoolStats() *goredis.PoolStats { return c.rdb.PoolStats() }

// Close closes the pool once; later calls return the first result.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.closeOnce.Do(func() { c.closeErr = c.rdb.Close() })
	return c.closeErr
}

// Unwrap returns the go-redis client.
func (c *Client) Unwrap() *goredis.Client { return c.rdb }
