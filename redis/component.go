package redis

import (
	"context"
	"fmt"

	"github.com/fernandomesquita/stenopro/component"
	"github.com/fernandomesquita/stenopro/logger"
)

// Component owns the Client backing the distributed run lock.
type Component struct {
	cfg    Config
	log    *logger.Logger
	client *Client
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent returns an unstarted component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("redis")}
}

// Client is nil until Start succeeds.
func (c *Component) Client() *Client { return c.client }

func (c *Component) Name() string { return "redis" }

// Start refuses to come up against an unreachable server: with several
// replicas the run lock must be shared or not at all.
func (c *Component) Start(ctx context.Context) error {
	client, err := New(c.cfg, c.log)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return fmt.Errorf("redis %s: %w", c.cfg.Addr, err)
	}
	c.client = client
	c.log.Info("Redis connected", logger.Fields("addr", c.cfg.Addr, "lock_ttl", c.cfg.LockTTL.String()))
	return nil
}

func (c *Component) Stop(_ context.Context) error {
	return c.client.Close()
}

// Health pings the server and reports pool exhaustion as degraded.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if c.client == nil {
		h.Message = "not started"
		return h
	}
	if err := c.client.Ping(ctx); err != nil {
		h.Message = err.Error()
		return h
	}
	st := c.client.PoolStats()
	h.Status = component.StatusHealthy
	h.Message = fmt.Sprintf("%d conns, %d idle", st.TotalConns, st.IdleConns)
	if st.Timeouts > 0 && st.IdleConns == 0 && int(st.TotalConns) >= c.cfg.PoolSize {
		h.Status = component.StatusDegraded
		h.Message += fmt.Sprintf(", %d pool timeouts", st.Timeouts)
	}
	return h
}

func (c *Component) Describe() component.Description {
	details := fmt.Sprintf("%s db=%d prefix=%s", c.cfg.Addr, c.cfg.DB, c.cfg.KeyPrefix)
	if c.cfg.TLS.Enabled {
		details += " tls"
	}
	return component.Description{Name: "Redis", Type: "redis", Details: details}
}
