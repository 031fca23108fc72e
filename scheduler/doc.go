// Package scheduler executes a dag.Graph with a bounded pool of workers.
//
// A run starts exactly P workers. Each worker takes whichever comes first: a
// ready action from the graph, or a sub-task injected by a running action
// through SubmitAndAwait. A worker blocked in SubmitAndAwait keeps executing
// queued sub-tasks while it waits, so fan-out never deadlocks the pool and
// never exceeds P concurrently executing units of work.
//
//	s, err := scheduler.New(&scheduler.Config{Parallelism: 4},
//	    scheduler.WithMetrics(metrics),
//	    scheduler.WithTracing(),
//	)
//	res, err := s.Run(ctx, graph)
//
// The first failing action aborts the run. Actions already executing drain
// for at most Config.DrainTimeout; their outcome is recorded in the Result
// but does not change the returned error. Cancelling ctx interrupts the run
// with an *Aborted error, honouring Config.InterruptPolicy.
package scheduler
