package dag

import (
	"sync"
	"sync/atomic"

	"github.com/kbukum/parbuild/errors"
)

// Graph is a set of actions and their dependency edges. Build it with
// AddAction, then Freeze it; the topology cannot change afterwards.
type Graph struct {
	// Name identifies the graph in logs and plan output.
	Name string

	mu         sync.Mutex
	actions    map[ActionID]*Action
	order      []*Action
	successors map[ActionID][]*Action
	levels     [][]ActionID
	frozen     bool

	running atomic.Bool
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		Name:       name,
		actions:    make(map[ActionID]*Action),
		successors: make(map[ActionID][]*Action),
	}
}

// AddAction registers a and its dependencies. Dependencies may name actions
// that are added later; they are checked by Freeze.
func (g *Graph) AddAction(a *Action, deps ...ActionID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return errors.InvalidGraph("graph %q is frozen, cannot add action %q", g.Name, a.ID)
	}
	if a.ID == "" {
		return errors.InvalidGraph("action id is required")
	}
	if a.Work == nil {
		return errors.InvalidGraph("action %q has no work function", a.ID)
	}
	if _, exists := g.actions[a.ID]; exists {
		return errors.InvalidGraph("duplicate action %q", a.ID)
	}
	seen := make(map[ActionID]bool, len(deps))
	for _, d := range deps {
		if seen[d] {
			return errors.InvalidGraph("action %q lists dependency %q twice", a.ID, d)
		}
		seen[d] = true
	}

	a.deps = append([]ActionID(nil), deps...)
	g.actions[a.ID] = a
	g.order = append(g.order, a)
	return nil
}

// Add is AddAction for a freshly created action.
func (g *Graph) Add(id ActionID, work WorkFunc, deps ...ActionID) (*Action, error) {
	a := NewAction(id, work)
	if err := g.AddAction(a, deps...); err != nil {
		return nil, err
	}
	return a, nil
}

// Freeze validates the graph and fixes its topology. It fails with an
// INVALID_GRAPH error for unknown dependencies and with *CycleError when the
// graph is not acyclic. Freeze is idempotent.
func (g *Graph) Freeze() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.frozen {
		return nil
	}

	successors := make(map[ActionID][]*Action, len(g.order))
	for _, a := range g.order {
		for _, d := range a.deps {
			if _, ok := g.actions[d]; !ok {
				return errors.InvalidGraph("action %q depends on unknown action %q", a.ID, d).
					WithDetail("action", string(a.ID))
			}
			successors[d] = append(successors[d], a)
		}
	}

	levels, err := buildLevels(g.order, successors)
	if err != nil {
		return err
	}

	g.successors = successors
	g.levels = levels
	g.frozen = true
	return nil
}

// buildLevels uses Kahn's algorithm to group actions by dependency depth.
// Actions within the same level can execute in parallel.
func buildLevels(order []*Action, successors map[ActionID][]*Action) ([][]ActionID, error) {
	inDegree := make(map[ActionID]int, len(order))
	var queue []ActionID
	for _, a := range order {
		inDegree[a.ID] = len(a.deps)
		if len(a.deps) == 0 {
			queue = append(queue, a.ID)
		}
	}

	var levels [][]ActionID
	visited := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []ActionID
		for _, id := range queue {
			for _, s := range successors[id] {
				inDegree[s.ID]--
				if inDegree[s.ID] == 0 {
					next = append(next, s.ID)
				}
			}
		}
		queue = next
	}

	if visited == len(order) {
		return levels, nil
	}

	// Peel actions that only lead out of the leftover set; what remains is on a cycle.
	left := make(map[ActionID]bool)
	for id, deg := range inDegree {
		if deg > 0 {
			left[id] = true
		}
	}
	for changed := true; changed; {
		changed = false
		for id := range left {
			onPath := false
			for _, s := range successors[id] {
				if left[s.ID] {
					onPath = true
					break
				}
			}
			if !onPath {
				delete(left, id)
				changed = true
			}
		}
	}
	nodes := make([]ActionID, 0, len(left))
	for id := range left {
		nodes = append(nodes, id)
	}
	return nil, newCycleError(nodes)
}

// Frozen reports whether Freeze has succeeded.
func (g *Graph) Frozen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.frozen
}

// Len returns the number of actions.
func (g *Graph) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.order)
}

// Action returns the action with the given id.
func (g *Graph) Action(id ActionID) (*Action, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.actions[id]
	return a, ok
}

// Actions returns all actions in insertion order.
func (g *Graph) Actions() []*Action {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Action, len(g.order))
	copy(out, g.order)
	return out
}

// Predecessors returns the dependencies of id in declaration order.
func (g *Graph) Predecessors(id ActionID) []ActionID {
	a, ok := g.Action(id)
	if !ok {
		return nil
	}
	return a.Deps()
}

// Successors returns the actions that depend on id, in insertion order.
// The result is empty until the graph is frozen.
func (g *Graph) Successors(id ActionID) []ActionID {
	g.mu.Lock()
	defer g.mu.Unlock()
	succ := g.successors[id]
	out := make([]ActionID, len(succ))
	for i, s := range succ {
		out[i] = s.ID
	}
	return out
}

// Levels freezes the graph and returns its actions grouped by dependency
// depth; level 0 has no dependencies.
func (g *Graph) Levels() ([][]ActionID, error) {
	if err := g.Freeze(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([][]ActionID, len(g.levels))
	for i, l := range g.levels {
		out[i] = append([]ActionID(nil), l...)
	}
	return out, nil
}

// Use wraps every action's work function with mw, innermost first.
func (g *Graph) Use(mw ...func(WorkFunc) WorkFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range g.order {
		for _, m := range mw {
			a.Work = m(a.Work)
		}
	}
}

// BeginRun freezes the graph, claims it for a run and resets per-run state.
// A graph can only be run by one scheduler at a time; BeginRun fails with an
// INVALID_GRAPH error while another run is in progress.
func (g *Graph) BeginRun() error {
	if err := g.Freeze(); err != nil {
		return err
	}
	if !g.running.CompareAndSwap(false, true) {
		return errors.InvalidGraph("graph %q is already being run", g.Name)
	}
	for _, a := range g.order {
		a.reset()
	}
	return nil
}

// EndRun releases the claim taken by BeginRun.
func (g *Graph) EndRun() {
	g.running.Store(false)
}

// Roots returns the actions without dependencies.
func (g *Graph) Roots() []*Action {
	var roots []*Action
	for _, a := range g.order {
		if len(a.deps) == 0 {
			roots = append(roots, a)
		}
	}
	return roots
}

// Inputs assembles the inputs for a: its predecessors' artifacts and pool.
// All predecessors must be Done.
func (g *Graph) Inputs(a *Action, pool Pool) *Inputs {
	in := &Inputs{
		Action: a.ID,
		Pool:   pool,
		order:  a.deps,
		deps:   make(map[ActionID]Artifact, len(a.deps)),
	}
	for _, d := range a.deps {
		in.deps[d] = g.actions[d].artifact
	}
	return in
}

// Complete records the outcome of a and returns the successors that became
// ready as a result. A failed action releases no successors.
func (g *Graph) Complete(a *Action, artifact Artifact, err error) []*Action {
	if err != nil {
		a.err = err
		a.status.Store(int32(StatusFailed))
		return nil
	}
	a.artifact = artifact
	a.status.Store(int32(StatusDone))

	var ready []*Action
	for _, s := range g.successors[a.ID] {
		if s.pending.Add(-1) == 0 {
			ready = append(ready, s)
		}
	}
	return ready
}
