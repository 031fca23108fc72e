package scheduler

import (
	"context"
	"sync"

	"github.com/kbukum/parbuild/dag"
)

// Pool is the dag.Pool handed to work functions of a run. Its methods must
// only be called from work executing inside that run: the caller's worker
// slot is what executes queued tasks while it waits.
type Pool struct {
	r *run
}

var _ dag.Pool = (*Pool)(nil)

type taskResult struct {
	index int
	err   error
}

// batch is one SubmitAndAwait call. Its tasks run with the submitter's
// context whichever worker picks them up.
type batch struct {
	ctx       context.Context
	results   chan taskResult // capacity = batch size
	abandoned chan struct{}
	once      sync.Once
}

func newBatch(ctx context.Context, n int) *batch {
	return &batch{
		ctx:       ctx,
		results:   make(chan taskResult, n),
		abandoned: make(chan struct{}),
	}
}

// abandon stops the feeder and makes workers skip queued tasks of the batch.
func (b *batch) abandon() {
	b.once.Do(func() { close(b.abandoned) })
}

func (b *batch) isAbandoned() bool {
	select {
	case <-b.abandoned:
		return true
	default:
		return false
	}
}

// Parallelism returns the number of workers of the run.
func (p *Pool) Parallelism() int {
	return p.r.p
}

// SubmitAndAwait queues tasks on the run's workers and waits until all of
// them succeed or one fails. While waiting, the caller executes queued tasks
// itself, its own or another submitter's, so a batch larger than the number
// of idle workers still completes. Every task receives ctx, also when another
// submitter executes it; cancelling ctx only affects this batch.
//
// The first failure is returned as a *TaskFailure. Tasks of the batch that
// have not started yet are then skipped; running ones finish and their
// result is discarded. If the run is aborted or ctx is cancelled while
// waiting, SubmitAndAwait returns an *Aborted.
func (p *Pool) SubmitAndAwait(ctx context.Context, tasks ...dag.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	r := p.r
	b := newBatch(ctx, len(tasks))
	defer b.abandon()

	go r.feed(b, tasks)

	for count := 0; count < len(tasks); {
		// Results and aborts win over picking up more work.
		select {
		case res := <-b.results:
			count++
			if res.err != nil {
				return &TaskFailure{Index: res.index, Cause: res.err}
			}
			continue
		default:
		}
		if err := ctx.Err(); err != nil {
			return &Aborted{Cause: err}
		}
		if r.stopped() {
			return &Aborted{Cause: r.stopErr}
		}

		select {
		case res := <-b.results:
			count++
			if res.err != nil {
				return &TaskFailure{Index: res.index, Cause: res.err}
			}
		case item := <-r.intake:
			r.runTask(-1, item)
		case <-r.quit:
			return &Aborted{Cause: r.stopErr}
		case <-ctx.Done():
			return &Aborted{Cause: ctx.Err()}
		}
	}
	return nil
}

// feed sends the batch to the intake channel, stopping early once the batch
// is abandoned.
func (r *run) feed(b *batch, tasks []dag.Task) {
	for i, t := range tasks {
		select {
		case r.intake <- workItem{kind: kindTask, task: t, index: i, batch: b}:
		case <-b.abandoned:
			return
		}
	}
}

// Collect runs fns through pool and returns their results in submission
// order. It fails like SubmitAndAwait.
func Collect[T any](ctx context.Context, pool dag.Pool, fns ...func(context.Context) (T, error)) ([]T, error) {
	out := make([]T, len(fns))
	tasks := make([]dag.Task, len(fns))
	for i, fn := range fns {
		tasks[i] = func(ctx context.Context) error {
			v, err := fn(ctx)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		}
	}
	if err := pool.SubmitAndAwait(ctx, tasks...); err != nil {
		return nil, err
	}
	return out, nil
}
