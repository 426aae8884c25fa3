package server

import (
	"context"
	"fmt"

	"github.com/fernandomesquita/stenopro/component"
)

const componentName = "http-server"

var (
	_ component.Component   = (*ServerComponent)(nil)
	_ component.Describable = (*ServerComponent)(nil)
)

// ServerComponent wraps Server to implement component.Component.
type ServerComponent struct {
	server *Server
}

// NewComponent returns a component.Component backed by the given Server.
func NewComponent(s *Server) *ServerComponent {
	return &ServerComponent{server: s}
}

// Server returns the wrapped server.
func (sc *ServerComponent) Server() *Server { return sc.server }

// Name returns the component name used for registration.
func (sc *ServerComponent) Name() string { return componentName }

// Start starts the underlying HTTP server.
func (sc *ServerComponent) Start(ctx context.Context) error {
	return sc.server.Start(ctx)
}

// Stop gracefully shuts down the underlying HTTP server.
func (sc *ServerComponent) Stop(ctx context.Context) error {
	return sc.server.Stop(ctx)
}

// Health reports the server healthy while it is listening and serving.
func (sc *ServerComponent) Health(context.Context) component.Health {
	h := component.Health{Name: componentName, Status: component.StatusHealthy}
	switch listening, err := sc.server.state(); {
	case err != nil:
		h.Status, h.Message = component.StatusUnhealthy, err.Error()
	case !listening:
		h.Status, h.Message = component.StatusUnhealthy, "HTTP server not listening"
	}
	return h
}

// Describe returns infrastructure summary info for the bootstrap display.
func (sc *ServerComponent) Describe() component.Description {
	cfg := sc.server.cfg
	return component.Description{
		Name:    "HTTP Server",
		Type:    "server",
		Details: fmt.Sprintf("%s:%d h2c", cfg.Host, cfg.Port),
		Port:    cfg.Port,
	}
}
