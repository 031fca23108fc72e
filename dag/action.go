package dag

import (
	"context"
	"sync/atomic"
)

// ActionID identifies an action within a graph.
type ActionID string

// Status is the lifecycle state of an action within one run.
type Status int32

const (
	StatusPending Status = iota
	StatusReady
	StatusRunning
	StatusDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusDone:
		return "done"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Artifact is whatever an action produces for its successors.
type Artifact any

// WorkFunc performs an action. It must be safe to call from any goroutine.
type WorkFunc func(ctx context.Context, in *Inputs) (Artifact, error)

// Task is a unit of sub-work injected into the worker pool by a running action.
type Task func(ctx context.Context) error

// Pool is the worker pool a running action can fan sub-work out to.
type Pool interface {
	// SubmitAndAwait runs tasks on the pool and blocks until all of them
	// succeed or the first one fails. While waiting, the caller executes
	// queued tasks itself.
	SubmitAndAwait(ctx context.Context, tasks ...Task) error
	// Parallelism is the pool's bound on concurrently executing work.
	Parallelism() int
}

// Action is a node of the build graph.
type Action struct {
	ID ActionID
	// Work is called once per run, after every dependency is Done.
	Work WorkFunc
	// Description is shown by plan output.
	Description string

	deps []ActionID

	// per-run state, reset by Graph.Reset
	status   atomic.Int32
	pending  atomic.Int32
	artifact Artifact
	err      error
}

// NewAction creates an action with the given work function.
func NewAction(id ActionID, work WorkFunc) *Action {
	return &Action{ID: id, Work: work}
}

// Deps returns the action's predecessors in declaration order.
func (a *Action) Deps() []ActionID {
	out := make([]ActionID, len(a.deps))
	copy(out, a.deps)
	return out
}

// Status returns the action's current status.
func (a *Action) Status() Status {
	return Status(a.status.Load())
}

// Artifact returns the result of the last successful run. Only meaningful
// once Status is StatusDone.
func (a *Action) Artifact() Artifact {
	return a.artifact
}

// Err returns the failure of the last run, if the action failed.
func (a *Action) Err() error {
	return a.err
}

// Start moves a Ready action to Running. It returns false if the action was
// not Ready, which means another worker already owns it.
func (a *Action) Start() bool {
	return a.transition(StatusReady, StatusRunning)
}

func (a *Action) transition(from, to Status) bool {
	return a.status.CompareAndSwap(int32(from), int32(to))
}

func (a *Action) reset() {
	a.status.Store(int32(StatusPending))
	a.pending.Store(int32(len(a.deps)))
	a.artifact = nil
	a.err = nil
}
