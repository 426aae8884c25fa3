package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandomesquita/stenopro/component"
	"github.com/fernandomesquita/stenopro/logger"
)

// probeTimeout bounds a backend reachability probe.
const probeTimeout = 3 * time.Second

// Component opens the configured backend on start and probes it for health.
type Component struct {
	cfg     Config
	log     *logger.Logger
	backend Storage
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	return &Component{cfg: cfg, log: log.WithComponent("storage")}
}

// Storage returns the open backend, nil before Start.
func (c *Component) Storage() Storage { return c.backend }

func (c *Component) Name() string { return "storage" }

func (c *Component) Start(ctx context.Context) error {
	backend, err := New(ctx, c.cfg, c.log)
	if err != nil {
		return fmt.Errorf("open %s storage: %w", c.cfg.Provider, err)
	}
	c.backend = backend
	return nil
}

func (c *Component) Stop(context.Context) error {
	c.backend = nil
	return nil
}

func (c *Component) Health(ctx context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if c.backend == nil {
		h.Status, h.Message = component.StatusUnhealthy, "storage not initialized"
		return h
	}
	p, ok := c.backend.(Pinger)
	if !ok {
		return h
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		h.Status, h.Message = component.StatusUnhealthy, "probe failed: "+err.Error()
		return h
	}
	h.Message = fmt.Sprintf("%s reachable in %s", c.cfg.Provider, time.Since(start).Round(time.Millisecond))
	return h
}

func (c *Component) Describe() component.Description {
	where := ""
	switch c.cfg.Provider {
	case ProviderLocal:
		where = " path=" + c.cfg.Local.BasePath
	case ProviderS3:
		where = " bucket=" + c.cfg.S3.Bucket
	}
	return component.Description{Name: "Storage", Type: "storage", Details: "provider=" + c.cfg.Provider + where}
}
