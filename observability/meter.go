package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/fernandomesquita/stenopro/logger"
)

// MeterConfig configures metric export over OTLP/HTTP.
type MeterConfig struct {
	Identity
	Endpoint string
	Insecure bool
	// Interval is the export period.
	Interval time.Duration
}

// InitMeter installs a periodic OTLP meter provider as the global provider.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(config.Endpoint)}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := config.resource(ctx)
	if err != nil {
		return nil, fmt.Errorf("metric resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// instruments creates instruments on one meter and keeps the first error.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("creating %s: %w", name, err)
	}
}

func (in *instruments) counter(name, desc string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc))
	in.keep(name, err)
	return c
}

func (in *instruments) gauge(name, desc string) metric.Int64UpDownCounter {
	c, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	in.keep(name, err)
	return c
}

func (in *instruments) seconds(name, desc string) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	in.keep(name, err)
	return h
}

// Metrics holds the HTTP request instruments.
type Metrics struct {
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestActive   metric.Int64UpDownCounter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	in := &instruments{meter: meter}
	m := &Metrics{
		requestTotal:    in.counter("stenopro.http.requests", "HTTP requests served"),
		requestDuration: in.seconds("stenopro.http.duration", "HTTP request latency"),
		requestActive:   in.gauge("stenopro.http.active", "HTTP requests in flight"),
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

// RecordRequestStart increments the active request count.
func (m *Metrics) RecordRequestStart(ctx context.Context) {
	m.requestActive.Add(ctx, 1)
}

// RecordRequestEnd closes a request opened by RecordRequestStart.
func (m *Metrics) RecordRequestEnd(ctx context.Context, route, method string, status int, duration time.Duration) {
	m.requestActive.Add(ctx, -1)
	where := []attribute.KeyValue{attribute.String("route", route), attribute.String("method", method)}
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(where...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(append(where, attribute.Int("status", status))...))
}

// PipelineMetrics holds the processing pipeline instruments.
type PipelineMetrics struct {
	runs          metric.Int64Counter
	active        metric.Int64UpDownCounter
	stageDuration metric.Float64Histogram
}

func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	in := &instruments{meter: meter}
	m := &PipelineMetrics{
		runs:          in.counter("stenopro.pipeline.runs", "Completed pipeline runs by outcome and failure kind"),
		active:        in.gauge("stenopro.pipeline.active", "Pipeline runs in flight"),
		stageDuration: in.seconds("stenopro.pipeline.stage.duration", "Pipeline stage latency"),
	}
	if in.err != nil {
		return nil, in.err
	}
	return m, nil
}

// RunStarted marks a run as in flight.
func (m *PipelineMetrics) RunStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1)
}

// RunFinished records a finished run. kind is empty on success.
func (m *PipelineMetrics) RunFinished(ctx context.Context, outcome, kind string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1)
	m.runs.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("kind", kind),
	))
}

// StageFinished records how long a stage took.
func (m *PipelineMetrics) StageFinished(ctx context.Context, stage string, failed bool, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("failed", failed),
	))
}
