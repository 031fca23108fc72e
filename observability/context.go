package observability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/parbuild/logger"
)

// RunContext holds observability state for one scheduler run.
type RunContext struct {
	RunID       string
	Graph       string
	Parallelism int
	StartTime   time.Time
	Metrics     *Metrics
}

// NewRunContext creates a run context with a fresh run id.
// If metrics is nil, metric recording is silently skipped.
func NewRunContext(graph string, parallelism int, metrics *Metrics) *RunContext {
	return &RunContext{
		RunID:       uuid.NewString(),
		Graph:       graph,
		Parallelism: parallelism,
		StartTime:   time.Now(),
		Metrics:     metrics,
	}
}

type runContextKey struct{}

// WithRunContext stores rc in ctx, together with its run id for log enrichment.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	ctx = context.WithValue(ctx, runContextKey{}, rc)
	return logger.ContextWithRunID(ctx, rc.RunID)
}

// RunContextFromContext retrieves the RunContext from ctx, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// MetricsFromContext returns the metrics of the run in ctx, or nil.
func MetricsFromContext(ctx context.Context) *Metrics {
	if rc := RunContextFromContext(ctx); rc != nil {
		return rc.Metrics
	}
	return nil
}

// StartRunSpan starts the root span of the run.
func (rc *RunContext) StartRunSpan(ctx context.Context) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanRun, trace.WithAttributes(
		attribute.String(AttrRunID, rc.RunID),
		attribute.String(AttrGraph, rc.Graph),
		attribute.Int(AttrParallelism, rc.Parallelism),
	))
}

// EndRun closes the run span with its final status.
func (rc *RunContext) EndRun(span trace.Span, status string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}
	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, rc.Duration().Milliseconds()),
	)
	span.End()
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
