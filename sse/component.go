package sse

import (
	"context"
	"fmt"

	"github.com/fernandomesquita/stenopro/component"
)

// Component runs the hub loop for the lifetime of the application. Stopping
// it disconnects every watcher.
type Component struct {
	hub     *Hub
	path    string
	stopped chan struct{}
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a hub for watchers connected at path.
func NewComponent(path string) *Component {
	return &Component{hub: NewHub(), path: path}
}

func (c *Component) Hub() *Hub { return c.hub }

func (c *Component) Name() string { return "sse" }

func (c *Component) Start(_ context.Context) error {
	c.stopped = make(chan struct{})
	go func() {
		defer close(c.stopped)
		c.hub.Run()
	}()
	return nil
}

// Stop waits for the loop to close its clients, or for ctx.
func (c *Component) Stop(ctx context.Context) error {
	c.hub.Stop()
	if c.stopped == nil {
		return nil
	}
	select {
	case <-c.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sse hub: %w", ctx.Err())
	}
}

func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	select {
	case <-c.stopped:
		h.Status = component.StatusUnhealthy
		h.Message = "hub stopped"
	default:
		h.Message = fmt.Sprintf("%d clients connected", c.hub.GetClientCount())
	}
	return h
}

func (c *Component) Describe() component.Description {
	return component.Description{Name: "Progress stream", Type: "sse", Details: c.path}
}
