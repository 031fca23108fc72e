package scheduler

import (
	"slices"
	"time"

	"github.com/kbukum/parbuild/dag"
)

// Result summarizes one run.
type Result struct {
	RunID       string
	Graph       string
	Parallelism int
	Duration    time.Duration
	// Statuses holds every action's status when Run returned. After an
	// immediate interrupt some actions may still be Running.
	Statuses map[dag.ActionID]dag.Status
	// Err is the error Run returned.
	Err error
}

// Succeeded reports whether every action is Done.
func (r *Result) Succeeded() bool {
	if r.Err != nil {
		return false
	}
	for _, s := range r.Statuses {
		if s != dag.StatusDone {
			return false
		}
	}
	return true
}

// Count returns the number of actions with the given status.
func (r *Result) Count(status dag.Status) int {
	n := 0
	for _, s := range r.Statuses {
		if s == status {
			n++
		}
	}
	return n
}

// WithStatus returns the sorted ids of actions with the given status.
func (r *Result) WithStatus(status dag.Status) []dag.ActionID {
	var ids []dag.ActionID
	for id, s := range r.Statuses {
		if s == status {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func snapshot(g *dag.Graph) map[dag.ActionID]dag.Status {
	actions := g.Actions()
	out := make(map[dag.ActionID]dag.Status, len(actions))
	for _, a := range actions {
		out[a.ID] = a.Status()
	}
	return out
}
