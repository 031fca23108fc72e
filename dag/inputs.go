package dag

import (
	"fmt"
	"slices"
)

// Inputs is what a work function receives: the artifacts of its
// predecessors and the pool it may fan sub-work out to.
type Inputs struct {
	// Action is the id of the action being executed.
	Action ActionID
	// Pool accepts sub-tasks; never nil when called by the scheduler.
	Pool Pool

	order []ActionID
	deps  map[ActionID]Artifact
}

// NewInputs builds Inputs by hand, for calling a WorkFunc outside a
// scheduler. Deps are ordered by id.
func NewInputs(action ActionID, pool Pool, deps map[ActionID]Artifact) *Inputs {
	in := &Inputs{Action: action, Pool: pool, deps: make(map[ActionID]Artifact, len(deps))}
	for id, art := range deps {
		in.order = append(in.order, id)
		in.deps[id] = art
	}
	slices.Sort(in.order)
	return in
}

// Get returns the artifact produced by predecessor id.
func (in *Inputs) Get(id ActionID) (Artifact, bool) {
	art, ok := in.deps[id]
	return art, ok
}

// Deps returns the predecessor ids in declaration order.
func (in *Inputs) Deps() []ActionID {
	return append([]ActionID(nil), in.order...)
}

// Port is a typed handle on a predecessor's artifact.
type Port[T any] struct {
	From ActionID
}

// Read retrieves a typed artifact through a Port. It fails if the
// predecessor is not a dependency or produced a different type.
func Read[T any](in *Inputs, port Port[T]) (T, error) {
	var zero T
	raw, ok := in.Get(port.From)
	if !ok {
		return zero, fmt.Errorf("dag: action %q has no dependency %q", in.Action, port.From)
	}
	val, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("dag: artifact of %q: expected %T, got %T", port.From, zero, raw)
	}
	return val, nil
}
