package dag

import (
	"context"
	"time"

	"github.com/kbukum/parbuild/errors"
	"github.com/kbukum/parbuild/logger"
	"github.com/kbukum/parbuild/observability"
)

// WithTracing wraps a work function with a span named "{prefix}.{actionID}".
func WithTracing(prefix string) func(WorkFunc) WorkFunc {
	return func(work WorkFunc) WorkFunc {
		return func(ctx context.Context, in *Inputs) (Artifact, error) {
			ctx, span := observability.StartSpan(ctx, prefix+"."+string(in.Action))
			defer span.End()

			observability.SetSpanAttribute(ctx, observability.AttrActionID, string(in.Action))
			art, err := work(ctx, in)
			if err != nil {
				observability.SetSpanError(ctx, err)
			}
			return art, err
		}
	}
}

// WithMetrics wraps a work function with action count, duration and error metrics.
func WithMetrics(metrics *observability.Metrics) func(WorkFunc) WorkFunc {
	return func(work WorkFunc) WorkFunc {
		return func(ctx context.Context, in *Inputs) (Artifact, error) {
			start := time.Now()
			art, err := work(ctx, in)
			status := StatusDone.String()
			if err != nil {
				status = StatusFailed.String()
				metrics.RecordError(ctx, string(errors.CodeOf(err)), string(in.Action))
			}
			metrics.RecordAction(ctx, string(in.Action), status, time.Since(start))
			return art, err
		}
	}
}

// WithLogging wraps a work function with completion logging: failures at
// error level, successes at debug.
func WithLogging(log *logger.Logger) func(WorkFunc) WorkFunc {
	return func(work WorkFunc) WorkFunc {
		return func(ctx context.Context, in *Inputs) (Artifact, error) {
			start := time.Now()
			art, err := work(ctx, in)

			fields := logger.MergeWithDuration(logger.Fields(logger.FieldAction, string(in.Action)), time.Since(start))
			l := log.WithContext(ctx)
			if err != nil {
				l.Error("action failed", logger.MergeWithError(fields, err))
			} else {
				l.Debug("action completed", fields)
			}
			return art, err
		}
	}
}
