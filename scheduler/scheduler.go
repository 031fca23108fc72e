package scheduler

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/parbuild/dag"
	"github.com/kbukum/parbuild/errors"
	"github.com/kbukum/parbuild/logger"
	"github.com/kbukum/parbuild/observability"
)

// Scheduler runs graphs with a fixed number of workers. It holds no per-run
// state, so one Scheduler may run several independent graphs concurrently.
type Scheduler struct {
	cfg     Config
	metrics *observability.Metrics
	tracing bool
	runID   string
	log     *logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMetrics records action, task and worker metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithTracing creates a span for the run and for every action and task.
func WithTracing() Option {
	return func(s *Scheduler) { s.tracing = true }
}

// WithRunID uses id instead of a generated run id. Every run of the
// Scheduler shares it.
func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

// WithLogger replaces the default "scheduler" logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a Scheduler. A nil cfg uses the defaults.
func New(cfg *Config, opts ...Option) (*Scheduler, error) {
	var c Config
	if cfg != nil {
		c = *cfg
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s := &Scheduler{cfg: c}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("scheduler")
	}
	return s, nil
}

// Parallelism returns the number of workers per run.
func (s *Scheduler) Parallelism() int {
	return s.cfg.Parallelism
}

// Run executes every action of g, each after all of its dependencies are
// Done. It freezes g first; an invalid or cyclic graph fails before any
// action runs and yields a nil Result.
//
// Run returns the first failure as an *ActionFailure, or an *Aborted when
// ctx is cancelled. The Result is returned in both cases.
func (s *Scheduler) Run(ctx context.Context, g *dag.Graph) (*Result, error) {
	if err := g.BeginRun(); err != nil {
		return nil, err
	}

	rc := observability.NewRunContext(g.Name, s.cfg.Parallelism, s.metrics)
	if s.runID != "" {
		rc.RunID = s.runID
	}
	ctx = observability.WithRunContext(ctx, rc)
	r := newRun(s, g, rc)

	var span trace.Span
	if s.tracing {
		ctx, span = rc.StartRunSpan(ctx)
	}

	log := r.log.WithContext(ctx)
	log.Info("run started", logger.Fields(
		"graph", g.Name,
		logger.FieldParallelism, s.cfg.Parallelism,
		"actions", g.Len(),
	))

	err := r.execute(ctx)

	res := &Result{
		RunID:       rc.RunID,
		Graph:       g.Name,
		Parallelism: s.cfg.Parallelism,
		Duration:    rc.Duration(),
		Statuses:    snapshot(g),
		Err:         err,
	}

	status := "succeeded"
	if err != nil {
		status = "failed"
		if _, ok := err.(*Aborted); ok {
			status = "aborted"
		}
		s.metrics.RecordError(ctx, string(errors.CodeOf(err)), "scheduler")
		log.Error("run finished", logger.MergeWithError(logger.Fields(
			logger.FieldStatus, status,
			"done", res.Count(dag.StatusDone),
			"failed", res.Count(dag.StatusFailed),
		), err))
	} else {
		log.Info("run finished", logger.MergeWithDuration(logger.Fields(
			logger.FieldStatus, status,
			"done", res.Count(dag.StatusDone),
		), res.Duration))
	}
	if span != nil {
		rc.EndRun(span, status, err)
	}
	return res, err
}

// Schedule runs g with p workers using the default configuration.
func Schedule(ctx context.Context, g *dag.Graph, p int) error {
	s, err := New(&Config{Parallelism: p})
	if err != nil {
		return err
	}
	_, err = s.Run(ctx, g)
	return err
}

// execute drives one run to completion and releases the graph once every
// worker has exited.
func (r *run) execute(ctx context.Context) error {
	if r.remaining.Load() == 0 {
		r.stop(nil)
		r.g.EndRun()
		return nil
	}

	r.wg.Add(r.p)
	for i := 0; i < r.p; i++ {
		go r.worker(ctx, i)
	}
	for _, a := range r.g.Roots() {
		r.enqueue(a)
	}

	select {
	case <-r.done:
		r.stop(nil)
	case <-r.quit:
	case <-ctx.Done():
		select {
		case <-r.done:
			r.stop(nil)
		default:
			r.stop(&Aborted{Cause: ctx.Err()})
		}
	}

	drained := make(chan struct{})
	go func() {
		r.wg.Wait()
		r.g.EndRun()
		close(drained)
	}()

	err := r.err()
	if err == nil {
		<-drained
		return nil
	}

	if _, interrupted := err.(*Aborted); interrupted && r.s.cfg.InterruptPolicy == InterruptImmediate {
		r.log.Warn("interrupted, not waiting for in-flight actions", logger.Fields(
			"in_flight", r.inflight.Load(),
		))
		return err
	}

	timer := time.NewTimer(r.s.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
	case <-timer.C:
		r.log.Warn("drain timeout, in-flight actions abandoned", logger.Fields(
			"in_flight", r.inflight.Load(),
			"timeout", r.s.cfg.DrainTimeout.String(),
		))
	}
	return err
}
