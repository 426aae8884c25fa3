package bootstrap

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fernandomesquita/stenopro/component"
	"github.com/fernandomesquita/stenopro/logger"
)

// DefaultGracefulTimeout bounds shutdown when no option overrides it.
const DefaultGracefulTimeout = 15 * time.Second

// App drives one service through its lifecycle. C is the typed config.
type App[C Config] struct {
	Name       string
	Version    string
	Cfg        C
	Components *component.Registry
	Logger     *logger.Logger
	Summary    *Summary

	gracefulTimeout time.Duration
	summaryOut      io.Writer
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and initializes the logger
// unless WithLogger supplied one.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	svc := cfg.GetServiceConfig()
	o := resolveOptions(opts)
	if o.logger == nil {
		logger.Init(svc.Logging, svc.Name)
		o.logger = logger.GetGlobalLogger()
	}
	a := &App[C]{
		Name:            svc.Name,
		Version:         svc.Version,
		Cfg:             cfg,
		Components:      component.NewRegistry(),
		Logger:          o.logger,
		Summary:         NewSummary(svc.Name, svc.Version),
		gracefulTimeout: DefaultGracefulTimeout,
		summaryOut:      cmp.Or[io.Writer](o.summaryOut, os.Stdout),
	}
	if o.gracefulTimeout != nil {
		a.gracefulTimeout = *o.gracefulTimeout
	}
	return a, nil
}

// RegisterComponent adds c to the registry. Components start in
// registration order and stop in reverse.
func (a *App[C]) RegisterComponent(c component.Component) error {
	return a.Components.Register(c)
}

// OnConfigure registers a callback that runs after components have started.
// Wiring that needs live infrastructure goes here.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// ReadyCheck joins one error per component that is not healthy.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var issues []error
	for _, h := range a.Components.HealthAll(ctx) {
		switch {
		case h.Status == component.StatusHealthy:
		case h.Message == "":
			issues = append(issues, fmt.Errorf("%s=%s", h.Name, h.Status))
		default:
			issues = append(issues, fmt.Errorf("%s=%s(%s)", h.Name, h.Status, h.Message))
		}
	}
	if issues == nil {
		return nil
	}
	return fmt.Errorf("unhealthy components: %w", errors.Join(issues...))
}

// Run starts the service and blocks until SIGINT, SIGTERM or ctx ends, then
// shuts down gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	return a.RunTask(ctx, func(ctx context.Context) error {
		a.Logger.Info("Application ready, waiting for shutdown signal")
		<-ctx.Done()
		return nil
	})
}

// RunTask starts the service, runs task and shuts down when it returns. A
// signal cancels the task's context.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	ctx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	if err := a.startup(ctx); err != nil {
		a.abort()
		return err
	}

	taskErr := task(ctx)
	if ctx.Err() != nil && context.Cause(ctx) != ctx.Err() {
		a.Logger.Info("Shutdown requested", logger.Fields("cause", context.Cause(ctx).Error()))
	}
	return errors.Join(taskErr, a.stop())
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Info("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"initialization", a.Components.StartAll},
		{"onStart hook", func(ctx context.Context) error { return runHooks(ctx, a.onStart) }},
		{"configuration", a.configure},
		{"ready check", func(ctx context.Context) error {
			if err := a.ReadyCheck(ctx); err != nil {
				a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
			}
			return nil
		}},
		{"onReady hook", func(ctx context.Context) error { return runHooks(ctx, a.onReady) }},
	}
	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("%s failed: %w", step.name, err)
		}
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()
	return nil
}

func (a *App[C]) configure(ctx context.Context) error {
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// DisplaySummary writes the startup summary, collecting infrastructure from
// every Describable component.
func (a *App[C]) DisplaySummary() {
	a.Summary.CollectFromRegistry(a.Components)
	a.Summary.Display(a.summaryOut, a.Components)
}

// abort releases whatever a failed startup already started.
func (a *App[C]) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	if err := a.Components.StopAll(ctx); err != nil {
		a.Logger.Error("Cleanup after failed startup", logger.Fields(logger.FieldError, err.Error()))
	}
}

// stop runs the OnStop hooks, then stops every component even when a hook
// failed. It has its own deadline because the run context is already done.
func (a *App[C]) stop() error {
	a.Logger.Info("Shutting down application", logger.Fields("timeout", a.gracefulTimeout.String()))
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	err := errors.Join(runHooks(ctx, a.onStop), a.Components.StopAll(ctx))
	if err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	a.Logger.Info("Application shutdown complete")
	return nil
}
