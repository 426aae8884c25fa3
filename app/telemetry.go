package app

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/fernandomesquita/stenopro/component"
	"github.com/fernandomesquita/stenopro/config"
	"github.com/fernandomesquita/stenopro/observability"
)

// telemetry owns the OpenTelemetry providers. It is registered first so it
// flushes after every other component has stopped.
type telemetry struct {
	cfg     observability.Config
	service config.ServiceConfig

	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*telemetry)(nil)
	_ component.Describable = (*telemetry)(nil)
)

func newTelemetry(cfg observability.Config, svc config.ServiceConfig) *telemetry {
	return &telemetry{cfg: cfg, service: svc}
}

func (t *telemetry) Name() string { return "telemetry" }

func (t *telemetry) Start(ctx context.Context) error {
	name, ver, env := t.service.Name, t.service.Version, t.service.Environment
	if t.cfg.TracingEnabled {
		tp, err := observability.InitTracer(ctx, t.cfg.TracerConfig(name, ver, env))
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		t.tracer = tp
	}
	if t.cfg.MetricsEnabled {
		mp, err := observability.InitMeter(ctx, t.cfg.MeterConfig(name, ver, env))
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		t.meter = mp
	}
	return nil
}

func (t *telemetry) Stop(ctx context.Context) error {
	var errs []error
	if t.meter != nil {
		errs = append(errs, t.meter.Shutdown(ctx))
	}
	if t.tracer != nil {
		errs = append(errs, t.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Health is always healthy; export failures are logged by the SDK.
func (t *telemetry) Health(context.Context) component.Health {
	return component.Health{Name: t.Name(), Status: component.StatusHealthy}
}

func (t *telemetry) Describe() component.Description {
	details := "disabled"
	if t.cfg.TracingEnabled || t.cfg.MetricsEnabled {
		details = fmt.Sprintf("endpoint=%s traces=%t metrics=%t", t.cfg.Endpoint, t.cfg.TracingEnabled, t.cfg.MetricsEnabled)
	}
	return component.Description{Name: "OpenTelemetry", Type: "otlp", Details: details}
}
