package dag

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	perrors "github.com/kbukum/parbuild/errors"
)

// --- test helpers ---

func constWork(v Artifact) WorkFunc {
	return func(context.Context, *Inputs) (Artifact, error) { return v, nil }
}

// inlinePool runs sub-tasks sequentially on the caller.
type inlinePool struct{}

func (inlinePool) SubmitAndAwait(ctx context.Context, tasks ...Task) error {
	for _, t := range tasks {
		if err := t(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (inlinePool) Parallelism() int { return 1 }

func mustAdd(t *testing.T, g *Graph, id ActionID, deps ...ActionID) *Action {
	t.Helper()
	a, err := g.Add(id, constWork(string(id)), deps...)
	if err != nil {
		t.Fatalf("Add(%s): %v", id, err)
	}
	return a
}

// --- Graph construction ---

func TestGraph_AddAndFreeze(t *testing.T) {
	g := NewGraph("std")
	mustAdd(t, g, "link", "compile", "cgo") // forward references are fine
	mustAdd(t, g, "compile")
	mustAdd(t, g, "cgo")

	if err := g.Freeze(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !g.Frozen() || g.Len() != 3 {
		t.Fatalf("expected frozen graph of 3, got frozen=%v len=%d", g.Frozen(), g.Len())
	}
	if err := g.Freeze(); err != nil {
		t.Fatalf("Freeze should be idempotent, got %v", err)
	}

	preds := g.Predecessors("link")
	if len(preds) != 2 || preds[0] != "compile" || preds[1] != "cgo" {
		t.Errorf("expected ordered predecessors [compile cgo], got %v", preds)
	}
	if succ := g.Successors("compile"); len(succ) != 1 || succ[0] != "link" {
		t.Errorf("expected successors [link], got %v", succ)
	}
	ids := []ActionID{}
	for _, a := range g.Actions() {
		ids = append(ids, a.ID)
	}
	if ids[0] != "link" || ids[2] != "cgo" {
		t.Errorf("expected insertion order, got %v", ids)
	}
}

func TestGraph_AddRejects(t *testing.T) {
	g := NewGraph("g")
	mustAdd(t, g, "a")

	tests := []struct {
		name string
		add  func() error
	}{
		{"duplicate id", func() error { _, err := g.Add("a", constWork(nil)); return err }},
		{"empty id", func() error { _, err := g.Add("", constWork(nil)); return err }},
		{"nil work", func() error { return g.AddAction(NewAction("b", nil)) }},
		{"repeated dependency", func() error { _, err := g.Add("c", constWork(nil), "a", "a"); return err }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.add()
			if perrors.CodeOf(err) != perrors.ErrCodeInvalidGraph {
				t.Fatalf("expected INVALID_GRAPH, got %v", err)
			}
		})
	}

	if err := g.Freeze(); err != nil {
		t.Fatal(err)
	}
	if _, err := g.Add("late", constWork(nil)); perrors.CodeOf(err) != perrors.ErrCodeInvalidGraph {
		t.Fatalf("expected INVALID_GRAPH after freeze, got %v", err)
	}
}

func TestGraph_UnknownDependency(t *testing.T) {
	g := NewGraph("g")
	mustAdd(t, g, "link", "compile")
	err := g.Freeze()
	if perrors.CodeOf(err) != perrors.ErrCodeInvalidGraph {
		t.Fatalf("expected INVALID_GRAPH, got %v", err)
	}
	if g.Frozen() {
		t.Fatal("graph must not be frozen after a failed Freeze")
	}
}

func TestGraph_CycleDetection(t *testing.T) {
	g := NewGraph("g")
	mustAdd(t, g, "root")
	mustAdd(t, g, "a", "root", "c")
	mustAdd(t, g, "b", "a")
	mustAdd(t, g, "c", "b")
	mustAdd(t, g, "downstream", "c")

	err := g.Freeze()
	var cycle *CycleError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected *CycleError, got %v", err)
	}
	want := []ActionID{"a", "b", "c"}
	if len(cycle.Nodes) != len(want) {
		t.Fatalf("expected cycle %v, got %v", want, cycle.Nodes)
	}
	for i := range want {
		if cycle.Nodes[i] != want[i] {
			t.Fatalf("expected cycle %v, got %v", want, cycle.Nodes)
		}
	}
	if perrors.CodeOf(err) != perrors.ErrCodeCycleDetected {
		t.Errorf("expected CYCLE_DETECTED, got %s", perrors.CodeOf(err))
	}
}

func TestGraph_SelfDependency(t *testing.T) {
	g := NewGraph("g")
	mustAdd(t, g, "a", "a")
	var cycle *CycleError
	if !errors.As(g.Freeze(), &cycle) || len(cycle.Nodes) != 1 || cycle.Nodes[0] != "a" {
		t.Fatalf("expected self-cycle on a, got %v", cycle)
	}
}

func TestGraph_Levels(t *testing.T) {
	g := NewGraph("g")
	mustAdd(t, g, "a")
	mustAdd(t, g, "b")
	mustAdd(t, g, "c", "a", "b")
	mustAdd(t, g, "d", "c")
	mustAdd(t, g, "e", "a")

	levels, err := g.Levels()
	if err != nil {
		t.Fatal(err)
	}
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %v", levels)
	}
	if len(levels[0]) != 2 || levels[0][0] != "a" || levels[0][1] != "b" {
		t.Errorf("unexpected level 0: %v", levels[0])
	}
	if len(levels[1]) != 2 || levels[2][0] != "d" {
		t.Errorf("unexpected levels: %v", levels)
	}
	if roots := g.Roots(); len(roots) != 2 {
		t.Errorf("expected 2 roots, got %d", len(roots))
	}
}

func TestGraph_EmptyGraph(t *testing.T) {
	g := NewGraph("empty")
	levels, err := g.Levels()
	if err != nil || len(levels) != 0 {
		t.Fatalf("expected no levels, got %v, %v", levels, err)
	}
}

// --- Run lifecycle ---

func TestGraph_BeginRunExclusive(t *testing.T) {
	g := NewGraph("g")
	mustAdd(t, g, "a")
	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	if err := g.BeginRun(); perrors.CodeOf(err) != perrors.ErrCodeInvalidGraph {
		t.Fatalf("expected INVALID_GRAPH for concurrent run, got %v", err)
	}
	g.EndRun()
	if err := g.BeginRun(); err != nil {
		t.Fatalf("expected graph to be reusable after EndRun, got %v", err)
	}
	g.EndRun()
}

func TestGraph_CompleteReleasesSuccessors(t *testing.T) {
	g := NewGraph("g")
	a := mustAdd(t, g, "a")
	b := mustAdd(t, g, "b")
	c := mustAdd(t, g, "c", "a", "b")
	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	defer g.EndRun()

	if ready := g.Complete(a, "A", nil); len(ready) != 0 {
		t.Fatalf("c must wait for b, got %v", ready)
	}
	ready := g.Complete(b, "B", nil)
	if len(ready) != 1 || ready[0] != c {
		t.Fatalf("expected c to become ready, got %v", ready)
	}

	in := g.Inputs(c, inlinePool{})
	for _, tc := range []struct {
		id   ActionID
		want string
	}{{"a", "A"}, {"b", "B"}} {
		got, err := Read(in, Port[string]{From: tc.id})
		if err != nil || got != tc.want {
			t.Errorf("Read(%s) = %q, %v", tc.id, got, err)
		}
	}
	if deps := in.Deps(); deps[0] != "a" || deps[1] != "b" {
		t.Errorf("expected ordered deps, got %v", deps)
	}
}

func TestGraph_FailedActionReleasesNothing(t *testing.T) {
	g := NewGraph("g")
	a := mustAdd(t, g, "a")
	mustAdd(t, g, "b", "a")
	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	defer g.EndRun()

	boom := errors.New("boom")
	if ready := g.Complete(a, nil, boom); ready != nil {
		t.Fatalf("expected no successors, got %v", ready)
	}
	if a.Status() != StatusFailed || !errors.Is(a.Err(), boom) {
		t.Errorf("expected failed action, got %s / %v", a.Status(), a.Err())
	}
}

func TestGraph_ResetBetweenRuns(t *testing.T) {
	g := NewGraph("g")
	a := mustAdd(t, g, "a")
	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	g.Complete(a, "x", nil)
	g.EndRun()

	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	defer g.EndRun()
	if a.Status() != StatusPending || a.Artifact() != nil {
		t.Errorf("expected reset state, got %s / %v", a.Status(), a.Artifact())
	}
}

func TestGraph_Use(t *testing.T) {
	g := NewGraph("g")
	a := mustAdd(t, g, "a")
	var order []string
	tag := func(name string) func(WorkFunc) WorkFunc {
		return func(next WorkFunc) WorkFunc {
			return func(ctx context.Context, in *Inputs) (Artifact, error) {
				order = append(order, name)
				return next(ctx, in)
			}
		}
	}
	g.Use(tag("inner"), tag("outer"))
	if _, err := a.Work(context.Background(), NewInputs("a", inlinePool{}, nil)); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "outer" {
		t.Errorf("expected outer middleware to run first, got %v", order)
	}
}

// --- ReadyQueue ---

func TestReadyQueue_FIFOAndAtMostOnce(t *testing.T) {
	g := NewGraph("g")
	a := mustAdd(t, g, "a")
	b := mustAdd(t, g, "b")
	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	defer g.EndRun()

	q := NewReadyQueue(2)
	if !q.Push(a) || !q.Push(b) {
		t.Fatal("expected pushes to succeed")
	}
	if q.Push(a) {
		t.Fatal("second push of the same action must be rejected")
	}
	if a.Status() != StatusReady {
		t.Errorf("expected ready, got %s", a.Status())
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 queued, got %d", q.Len())
	}

	first, _ := q.Pop()
	second, _ := q.Pop()
	if first != a || second != b {
		t.Fatal("expected FIFO order")
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("expected empty queue")
	}
	if !a.Start() || a.Start() {
		t.Fatal("Start must succeed exactly once")
	}
}

func TestReadyQueue_ConcurrentPushPop(t *testing.T) {
	g := NewGraph("g")
	const n = 200
	actions := make([]*Action, n)
	for i := range actions {
		actions[i] = mustAdd(t, g, ActionID(fmt.Sprintf("a%d", i)))
	}
	if err := g.BeginRun(); err != nil {
		t.Fatal(err)
	}
	defer g.EndRun()

	q := NewReadyQueue(n)
	var wg sync.WaitGroup
	for _, a := range actions {
		wg.Add(2)
		go func() { defer wg.Done(); q.Push(a) }()
		go func() { defer wg.Done(); q.Push(a) }()
	}
	wg.Wait()

	seen := make(map[*Action]bool)
	for {
		a, ok := q.Pop()
		if !ok {
			break
		}
		if seen[a] {
			t.Fatalf("action %s popped twice", a.ID)
		}
		seen[a] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d actions, got %d", n, len(seen))
	}
}

// --- Inputs / Port ---

func TestRead_Errors(t *testing.T) {
	in := NewInputs("link", inlinePool{}, map[ActionID]Artifact{"compile": 42})

	if v, err := Read(in, Port[int]{From: "compile"}); err != nil || v != 42 {
		t.Fatalf("expected 42, got %v, %v", v, err)
	}
	if _, err := Read(in, Port[string]{From: "compile"}); err == nil {
		t.Fatal("expected type mismatch error")
	}
	if _, err := Read(in, Port[int]{From: "vet"}); err == nil {
		t.Fatal("expected missing dependency error")
	}
	if in.Pool.Parallelism() != 1 {
		t.Fatal("expected pool to be carried")
	}
}

func TestStatus_String(t *testing.T) {
	for s, want := range map[Status]string{
		StatusPending: "pending", StatusReady: "ready", StatusRunning: "running",
		StatusDone: "done", StatusFailed: "failed", Status(99): "unknown",
	} {
		if s.String() != want {
			t.Errorf("Status(%d).String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("link", constWork("bin"))
	r.Register("compile", constWork("obj"))

	if _, ok := r.Get("link"); !ok {
		t.Fatal("expected link to be registered")
	}
	if _, ok := r.Get("vet"); ok {
		t.Fatal("expected vet to be missing")
	}
	if names := r.List(); len(names) != 2 || names[0] != "compile" {
		t.Errorf("expected sorted names, got %v", names)
	}
}
