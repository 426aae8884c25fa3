package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fernandomesquita/stenopro/component"
	apperrors "github.com/fernandomesquita/stenopro/errors"
	"github.com/fernandomesquita/stenopro/logger"
	"github.com/fernandomesquita/stenopro/resilience"
)

// Config is the pipeline section of the service configuration.
type Config struct {
	// MaxConcurrentRuns bounds how many detached runs execute at once.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs" mapstructure:"max_concurrent_runs"`
	// ShutdownTimeout is how long Stop waits for in-flight runs before
	// cancelling them.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ApplyDefaults sets sensible defaults for zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.MaxConcurrentRuns <= 0 {
		c.MaxConcurrentRuns = 4
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxConcurrentRuns < 1 {
		return fmt.Errorf("pipeline max_concurrent_runs must be at least 1")
	}
	return nil
}

// msgNotStarted is stored on records whose run was cancelled before it got a
// worker slot.
const msgNotStarted = "Processing did not start: the pipeline shut down first. Reprocess to try again."

// Dispatcher runs the orchestrator in the background, detached from the
// request that asked for the run.
type Dispatcher struct {
	orch     *Orchestrator
	cfg      Config
	bulkhead *resilience.Bulkhead
	log      *logger.Logger

	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

var (
	_ component.Component   = (*Dispatcher)(nil)
	_ component.Describable = (*Dispatcher)(nil)
)

// NewDispatcher creates a dispatcher for o.
func NewDispatcher(o *Orchestrator, cfg Config) *Dispatcher {
	cfg.ApplyDefaults()
	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		orch:     o,
		cfg:      cfg,
		bulkhead: resilience.NewBulkhead("pipeline", resilience.BulkheadConfig{MaxConcurrent: cfg.MaxConcurrentRuns}),
		log:      logger.Get("processing").WithComponent("dispatcher"),
		base:     base,
		cancel:   cancel,
	}
}

// Dispatch starts a run of id in the background and returns immediately.
func (d *Dispatcher) Dispatch(ctx context.Context, id uint) error {
	if err := d.reserve(); err != nil {
		return err
	}
	d.launch(ctx, id, nil, func(runCtx context.Context) error {
		return d.orch.Run(runCtx, id)
	})
	return nil
}

// DispatchReprocess checks the reprocess preconditions and resets the record
// synchronously, then runs it in the background. Precondition failures and
// a busy record are returned to the caller. A reset record always gets a run:
// the slot is reserved before the reset, so Shutdown waits for it.
func (d *Dispatcher) DispatchReprocess(ctx context.Context, id uint) error {
	if err := d.reserve(); err != nil {
		return err
	}
	unlock, err := d.orch.prepareReprocess(ctx, id)
	if err != nil {
		d.wg.Done()
		return err
	}
	d.launch(ctx, id, unlock, func(runCtx context.Context) error {
		return d.orch.run(runCtx, id)
	})
	return nil
}

// reserve counts a run against the drain before anything is persisted for
// it. The caller must launch the run or call d.wg.Done.
func (d *Dispatcher) reserve() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return apperrors.ServiceUnavailable("pipeline")
	}
	d.wg.Add(1)
	return nil
}

// launch runs fn on a worker slot. A run cancelled while waiting for a slot
// marks its record failed so it does not stay in uploading.
func (d *Dispatcher) launch(ctx context.Context, id uint, unlock Unlock, fn func(context.Context) error) {
	runCtx := logger.ContextWithTranscriptionID(d.base, id)
	if rid := logger.RequestIDFromContext(ctx); rid != "" {
		runCtx = logger.ContextWithRequestID(runCtx, rid)
	}

	go func() {
		defer d.wg.Done()
		if unlock != nil {
			defer unlock()
		}
		release, err := d.bulkhead.Acquire(runCtx)
		if err == nil && runCtx.Err() != nil {
			release()
			err = runCtx.Err()
		}
		if err != nil {
			d.log.Warn("Run not started", logger.Fields(
				logger.FieldTranscriptionID, id,
				logger.FieldError, err.Error(),
			))
			if aerr := d.orch.abandon(context.WithoutCancel(runCtx), id, msgNotStarted); aerr != nil {
				d.log.Error("Could not mark unstarted run failed", logger.Fields(
					logger.FieldTranscriptionID, id,
					logger.FieldError, aerr.Error(),
				))
			}
			return
		}
		defer release()

		if err := fn(runCtx); err != nil {
			d.log.Warn("Detached run returned an error", logger.Fields(
				logger.FieldTranscriptionID, id,
				logger.FieldError, err.Error(),
			))
		}
	}()
}

// Wait blocks until every dispatched run has finished.
func (d *Dispatcher) Wait() { d.wg.Wait() }

// InFlight returns the number of runs holding a worker slot.
func (d *Dispatcher) InFlight() int { return d.bulkhead.InUse() }

// Shutdown stops accepting runs and waits for in-flight ones. When ctx ends
// first the remaining runs are cancelled; their providers see a cancelled
// context and the runs record the failure.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

// Name returns the component name.
func (d *Dispatcher) Name() string { return "pipeline" }

// Start is a no-op; runs start on Dispatch.
func (d *Dispatcher) Start(context.Context) error { return nil }

// Stop drains in-flight runs, waiting at most the configured shutdown timeout.
func (d *Dispatcher) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ShutdownTimeout)
	defer cancel()
	if err := d.Shutdown(ctx); err != nil {
		d.log.Warn("Pipeline drained with cancelled runs", logger.Fields(logger.FieldError, err.Error()))
	}
	return nil
}

// Health reports worker usage.
func (d *Dispatcher) Health(context.Context) component.Health {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return component.Health{Name: d.Name(), Status: component.StatusUnhealthy, Message: "pipeline stopped"}
	}
	return component.Health{
		Name:    d.Name(),
		Status:  component.StatusHealthy,
		Message: fmt.Sprintf("%d/%d runs in flight", d.bulkhead.InUse(), d.bulkhead.MaxConcurrent()),
	}
}

// Describe returns infrastructure summary info for the bootstrap display.
func (d *Dispatcher) Describe() component.Description {
	return component.Description{
		Name:    "Pipeline",
		Type:    "worker",
		Details: fmt.Sprintf("max_concurrent_runs=%d", d.cfg.MaxConcurrentRuns),
	}
}
