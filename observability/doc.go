// Package observability provides OpenTelemetry tracing and metrics for
// parbuild runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("parbuild"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanAction)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("parbuild"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("parbuild"))
//	metrics.RecordAction(ctx, "link", "succeeded", elapsed)
//
// A RunContext carries the run id and metrics of one scheduler run through
// context.Context so work functions and sub-tasks can report against it.
package observability
