// Package process runs build tools as subprocesses and adapts them to graph
// actions.
//
// Run starts a command in its own process group; cancelling the context sends
// SIGTERM to the group, then SIGKILL after the grace period. A Runner adds
// per-attempt timeouts and retries of failed tools. Action and FanOut turn
// commands into dag work functions; FanOut submits one sub-task per command
// to the scheduler's pool.
package process
