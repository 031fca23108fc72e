package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/parbuild/dag"
	"github.com/kbukum/parbuild/errors"
	"github.com/kbukum/parbuild/logger"
	"github.com/kbukum/parbuild/observability"
)

type workKind uint8

const (
	kindAction workKind = iota
	kindTask
)

// workItem is a unit of work executed by a worker: either a ready action or
// an injected sub-task belonging to a batch.
type workItem struct {
	kind   workKind
	action *dag.Action
	task   dag.Task
	index  int
	batch  *batch
}

// run is the state of one Scheduler.Run invocation.
type run struct {
	s   *Scheduler
	g   *dag.Graph
	p   int
	rc  *observability.RunContext
	log *logger.Logger

	ready     *dag.ReadyQueue
	readySema chan struct{} // one token per queued action
	intake    chan workItem // injected sub-tasks
	pool      *Pool

	remaining atomic.Int64
	inflight  atomic.Int64
	done      chan struct{}
	doneOnce  sync.Once

	quit     chan struct{}
	stopOnce sync.Once
	stopErr  error

	wg sync.WaitGroup
}

func newRun(s *Scheduler, g *dag.Graph, rc *observability.RunContext) *run {
	n := g.Len()
	r := &run{
		s:         s,
		g:         g,
		p:         s.cfg.Parallelism,
		rc:        rc,
		log:       s.log,
		ready:     dag.NewReadyQueue(n),
		readySema: make(chan struct{}, n),
		intake:    make(chan workItem, s.cfg.Parallelism),
		done:      make(chan struct{}),
		quit:      make(chan struct{}),
	}
	r.pool = &Pool{r: r}
	r.remaining.Store(int64(n))
	return r
}

// stop latches the outcome of the run and releases the workers. Only the
// first call has an effect.
func (r *run) stop(err error) {
	r.stopOnce.Do(func() {
		r.stopErr = err
		close(r.quit)
	})
}

// err returns the latched outcome. Valid once quit is closed.
func (r *run) err() error {
	<-r.quit
	return r.stopErr
}

func (r *run) stopped() bool {
	select {
	case <-r.quit:
		return true
	default:
		return false
	}
}

func (r *run) enqueue(a *dag.Action) {
	if r.ready.Push(a) {
		r.readySema <- struct{}{}
	}
}

func (r *run) worker(ctx context.Context, id int) {
	defer r.wg.Done()
	for {
		if r.stopped() {
			return
		}
		select {
		case <-r.quit:
			return
		case <-r.readySema:
			a, ok := r.ready.Pop()
			if !ok {
				continue
			}
			r.exec(ctx, id, workItem{kind: kindAction, action: a})
		case item := <-r.intake:
			r.exec(ctx, id, item)
		}
	}
}

func (r *run) exec(ctx context.Context, worker int, item workItem) {
	switch item.kind {
	case kindAction:
		r.runAction(ctx, worker, item.action)
	case kindTask:
		r.runTask(worker, item)
	}
}

func (r *run) runAction(ctx context.Context, worker int, a *dag.Action) {
	if r.stopped() || !a.Start() {
		return
	}
	r.inflight.Add(1)
	defer r.inflight.Add(-1)
	defer r.rc.Metrics.WorkerBusy(ctx)()

	ctx = logger.ContextWithAction(ctx, string(a.ID))
	log := r.log.WithContext(ctx)
	log.Debug("action started", logger.Fields(logger.FieldWorker, worker))

	var span trace.Span
	if r.s.tracing {
		ctx, span = observability.StartSpan(ctx, observability.SpanAction, trace.WithAttributes(
			attribute.String(observability.AttrActionID, string(a.ID)),
		))
	}

	start := time.Now()
	art, err := call(func() (dag.Artifact, error) {
		return a.Work(ctx, r.g.Inputs(a, r.pool))
	})
	elapsed := time.Since(start)
	if err != nil {
		err = &ActionFailure{ID: a.ID, Cause: err}
	}
	next := r.g.Complete(a, art, err)

	status := a.Status().String()
	r.rc.Metrics.RecordAction(ctx, string(a.ID), status, elapsed)
	if span != nil {
		span.SetAttributes(
			attribute.String(observability.AttrStatus, status),
			attribute.Int64(observability.AttrDurationMs, elapsed.Milliseconds()),
		)
		observability.SetSpanError(ctx, err)
		span.End()
	}

	if err != nil {
		r.rc.Metrics.RecordError(ctx, string(errors.CodeOf(err)), string(a.ID))
		log.Error("action failed", logger.MergeWithError(logger.MergeWithDuration(
			logger.Fields(logger.FieldWorker, worker), elapsed), err))
		r.stop(err)
		return
	}
	log.Debug("action done", logger.MergeWithDuration(logger.Fields(logger.FieldWorker, worker), elapsed))

	for _, s := range next {
		r.enqueue(s)
	}
	if r.remaining.Add(-1) == 0 {
		r.doneOnce.Do(func() { close(r.done) })
	}
}

// runTask executes an injected task with its batch's context. A worker of -1
// is a waiting submitter, whose slot is already counted by its own action.
func (r *run) runTask(worker int, item workItem) {
	b := item.batch
	if r.stopped() || b.isAbandoned() {
		return
	}
	ctx := b.ctx
	if worker >= 0 {
		r.inflight.Add(1)
		defer r.inflight.Add(-1)
		defer r.rc.Metrics.WorkerBusy(ctx)()
	}

	var span trace.Span
	if r.s.tracing {
		ctx, span = observability.StartSpan(ctx, observability.SpanTask, trace.WithAttributes(
			attribute.Int(observability.AttrTaskIndex, item.index),
		))
	}

	start := time.Now()
	_, err := call(func() (dag.Artifact, error) {
		return nil, item.task(ctx)
	})
	elapsed := time.Since(start)

	status := "done"
	if err != nil {
		status = "failed"
		r.log.WithContext(ctx).Debug("task failed", logger.MergeWithError(logger.Fields(
			logger.FieldTask, item.index,
			logger.FieldWorker, worker,
		), err))
	}
	r.rc.Metrics.RecordTask(ctx, status, elapsed)
	if span != nil {
		span.SetAttributes(attribute.String(observability.AttrStatus, status))
		observability.SetSpanError(ctx, err)
		span.End()
	}

	b.results <- taskResult{index: item.index, err: err}
}

// call invokes fn and turns a panic into an error.
func call(fn func() (dag.Artifact, error)) (art dag.Artifact, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			art = nil
			err = errors.Internal(fmt.Errorf("panic: %v", rec)).
				WithDetail("stack", string(debug.Stack()))
		}
	}()
	return fn()
}
