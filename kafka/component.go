package kafka

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fernandomesquita/stenopro/component"
	"github.com/fernandomesquita/stenopro/logger"
)

// healthDialTimeout caps the broker probe made by Health.
const healthDialTimeout = 2 * time.Second

// Component owns the event Publisher. Starting it never contacts the
// brokers, so an unreachable cluster degrades event delivery without
// blocking uploads.
type Component struct {
	cfg       Config
	log       *logger.Logger
	publisher *Publisher
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("kafka")}
}

// Publisher is nil before Start.
func (c *Component) Publisher() *Publisher { return c.publisher }

func (c *Component) Name() string { return "kafka" }

func (c *Component) Start(_ context.Context) error {
	if c.publisher != nil {
		return nil
	}
	p, err := NewPublisher(c.cfg, c.log)
	if err != nil {
		return err
	}
	c.publisher = p
	c.log.Info("Publishing events", logger.Fields("topic", c.cfg.Topic, "brokers", strings.Join(c.cfg.Brokers, ",")))
	return nil
}

// Stop flushes pending writes.
func (c *Component) Stop(_ context.Context) error {
	if c.publisher == nil {
		return nil
	}
	p := c.publisher
	c.publisher = nil
	if n := p.Failed(); n > 0 {
		c.log.Warn("Events dropped during run", logger.Fields("count", n))
	}
	return p.Close()
}

// Health probes the brokers in order and reports degraded once any event
// could not be delivered.
func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusUnhealthy}
	if c.publisher == nil {
		h.Message = "not started"
		return h
	}
	if err := c.probe(ctx); err != nil {
		h.Message = err.Error()
		return h
	}
	h.Status = component.StatusHealthy
	if n := c.publisher.Failed(); n > 0 {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("%d events not published", n)
	}
	return h
}

func (c *Component) probe(ctx context.Context) error {
	dialer, err := CreateDialer(&c.cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, healthDialTimeout)
	defer cancel()

	var lastErr error
	for _, addr := range c.cfg.Brokers {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			return conn.Close()
		}
		lastErr = err
	}
	return fmt.Errorf("no broker reachable: %w", lastErr)
}

func (c *Component) Describe() component.Description {
	return component.Description{
		Name:    "Kafka",
		Type:    "kafka",
		Details: fmt.Sprintf("brokers=%v topic=%s", c.cfg.Brokers, c.cfg.Topic),
	}
}
