// Package observability wires OpenTelemetry tracing and metrics.
//
// Both exporters are OTLP over HTTP and stay off unless enabled in Config.
// Without them the global no-op providers are used, so StartSpan and the
// metric instruments are always safe to call.
//
//	tp, err := observability.InitTracer(ctx, cfg.TracerConfig("stenopro", version, env))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanPipelineRun)
//	defer span.End()
//
//	pm, _ := observability.NewPipelineMetrics(observability.Meter("stenopro"))
//	pm.RunFinished(ctx, "ready", "")
package observability
