package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fernandomesquita/stenopro/logger"
)

const instrumentationName = "github.com/fernandomesquita/stenopro"

// Span names.
const (
	SpanPipelineRun   = "pipeline.run"
	SpanTranscribe    = "pipeline.transcribe"
	SpanCorrect       = "pipeline.correct"
	SpanPipelineStage = "pipeline.stage"
	SpanHTTPRequest   = "http.request"
)

// Attribute keys.
const (
	AttrServiceName     = "service.name"
	AttrOperationName   = "operation.name"
	AttrTranscriptionID = "transcription.id"
	AttrStage           = "pipeline.stage"
	AttrOutcome         = "pipeline.outcome"
	AttrFailureKind     = "pipeline.failure_kind"
)

// Identity names the service on exported telemetry.
type Identity struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// resource is built without a schema URL.
func (id Identity) resource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithTelemetrySDK(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceName(id.ServiceName),
			semconv.ServiceVersion(id.ServiceVersion),
			semconv.DeploymentEnvironment(id.Environment),
		),
	)
}

// TracerConfig configures trace export over OTLP/HTTP.
type TracerConfig struct {
	Identity
	// Endpoint is host:port of the collector, e.g. "localhost:4318".
	Endpoint   string
	Insecure   bool
	SampleRate float64
}

// InitTracer installs a batching OTLP tracer provider and the W3C
// propagators globally. The caller shuts the provider down on exit.
func InitTracer(ctx context.Context, cfg TracerConfig) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	res, err := cfg.resource(ctx)
	if err != nil {
		return nil, fmt.Errorf("trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Get("observability").Info("Tracing enabled", logger.Fields(
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

func sampler(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	if rate <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.TraceIDRatioBased(rate)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// StartSpan starts a span on the service's tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer(instrumentationName).Start(ctx, name, opts...)
}

func attributeOf(key string, value any) (attribute.KeyValue, bool) {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v), true
	case bool:
		return attribute.Bool(key, v), true
	case int:
		return attribute.Int(key, v), true
	case int64:
		return attribute.Int64(key, v), true
	case uint:
		return attribute.Int64(key, int64(v)), true
	case float64:
		return attribute.Float64(key, v), true
	case fmt.Stringer:
		return attribute.String(key, v.String()), true
	}
	return attribute.KeyValue{}, false
}

// SetSpanAttribute sets key on the recording span in ctx. Values of
// unsupported types are ignored.
func SetSpanAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if kv, ok := attributeOf(key, value); ok {
		span.SetAttributes(kv)
	}
}

// SetSpanError records err on the span in ctx and marks it failed.
func SetSpanError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
