package component

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/fernandomesquita/stenopro/logger"
)

// StopTimeout bounds each component's Stop call.
const StopTimeout = 10 * time.Second

type slot struct {
	Component
	running bool
}

// Registry starts components in registration order and stops them in
// reverse. Dependencies register first.
type Registry struct {
	mu    sync.RWMutex
	slots []*slot
	names map[string]*slot
}

func NewRegistry() *Registry {
	return &Registry{names: make(map[string]*slot)}
}

func (r *Registry) add(c Component, running bool) {
	s := &slot{Component: c, running: running}
	r.slots = append(r.slots, s)
	r.names[c.Name()] = s
}

func (r *Registry) taken(name string) error {
	if _, ok := r.names[name]; ok {
		return fmt.Errorf("component %s already registered", name)
	}
	return nil
}

// Register adds c without starting it.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.taken(c.Name()); err != nil {
		return err
	}
	r.add(c, false)
	return nil
}

// StartAll starts pending components and stops at the first failure. The
// ones already running stay running so StopAll can unwind them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.Get("component")
	for _, s := range r.slots {
		if s.running {
			continue
		}
		if err := s.Start(ctx); err != nil {
			log.Error("component start failed", logger.Fields(logger.FieldComponent, s.Name(), logger.FieldError, err.Error()))
			return fmt.Errorf("failed to start %s: %w", s.Name(), err)
		}
		s.running = true
		log.Debug("component started", logger.Fields(logger.FieldComponent, s.Name()))
	}
	log.Info("components started", logger.Fields("count", len(r.slots)))
	return nil
}

// Launch starts c and registers it once it runs. Components built from live
// infrastructure join after StartAll this way, and stop before it.
func (r *Registry) Launch(ctx context.Context, c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.taken(c.Name()); err != nil {
		return err
	}
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("failed to start %s: %w", c.Name(), err)
	}
	r.add(c, true)
	logger.Get("component").Debug("component launched", logger.Fields(logger.FieldComponent, c.Name()))
	return nil
}

// StopAll stops running components newest first and joins their errors.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := logger.Get("component")
	var errs []error
	for _, s := range slices.Backward(r.slots) {
		if !s.running {
			continue
		}
		s.running = false
		if err := stop(ctx, s); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", s.Name(), err))
			log.Error("component stop failed", logger.Fields(logger.FieldComponent, s.Name(), logger.FieldError, err.Error()))
			continue
		}
		log.Debug("component stopped", logger.Fields(logger.FieldComponent, s.Name()))
	}
	return errors.Join(errs...)
}

func stop(ctx context.Context, c Component) error {
	ctx, cancel := context.WithTimeout(ctx, StopTimeout)
	defer cancel()
	return c.Stop(ctx)
}

// HealthAll probes every component in registration order. A report without
// a name takes the component's.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.Health(ctx)
		if out[i].Name == "" {
			out[i].Name = s.Name()
		}
	}
	return out
}

// Overall folds reports into one status. Unhealthy beats degraded.
func Overall(results []Health) HealthStatus {
	if slices.ContainsFunc(results, func(h Health) bool { return h.Status == StatusUnhealthy }) {
		return StatusUnhealthy
	}
	if slices.ContainsFunc(results, func(h Health) bool { return h.Status == StatusDegraded }) {
		return StatusDegraded
	}
	return StatusHealthy
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.names[name]; ok {
		return s.Component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.slots))
	for i, s := range r.slots {
		out[i] = s.Component
	}
	return out
}
