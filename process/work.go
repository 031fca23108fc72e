package process

import (
	"context"

	"github.com/kbukum/parbuild/dag"
	"github.com/kbukum/parbuild/scheduler"
)

// Action returns a work function that runs cmd. Its artifact is the *Result.
// A nil runner runs the command once.
func Action(runner *Runner, cmd Command) dag.WorkFunc {
	return func(ctx context.Context, _ *dag.Inputs) (dag.Artifact, error) {
		return runCommand(ctx, runner, cmd)
	}
}

// FanOut returns a work function that runs every command as a sub-task on
// the scheduler's pool, like the per-file compiler invocations of a cgo
// package. Its artifact is the []*Result in command order. The first failing
// command fails the action.
func FanOut(runner *Runner, cmds ...Command) dag.WorkFunc {
	return func(ctx context.Context, in *dag.Inputs) (dag.Artifact, error) {
		fns := make([]func(context.Context) (*Result, error), len(cmds))
		for i, cmd := range cmds {
			fns[i] = func(ctx context.Context) (*Result, error) {
				return runCommand(ctx, runner, cmd)
			}
		}
		results, err := scheduler.Collect(ctx, in.Pool, fns...)
		if err != nil {
			return nil, err
		}
		return results, nil
	}
}

func runCommand(ctx context.Context, runner *Runner, cmd Command) (*Result, error) {
	if runner == nil {
		return Run(ctx, cmd)
	}
	return runner.Run(ctx, cmd)
}

// Builder builds subprocess work for graph definitions.
type Builder struct {
	Runner *Runner
}

var _ dag.CommandBuilder = (*Builder)(nil)

// NewBuilder creates a Builder running commands through runner.
func NewBuilder(runner *Runner) *Builder {
	return &Builder{Runner: runner}
}

// Command implements dag.CommandBuilder.
func (b *Builder) Command(spec dag.CommandSpec) dag.WorkFunc {
	return Action(b.Runner, FromSpec(spec))
}

// FanOut implements dag.CommandBuilder.
func (b *Builder) FanOut(specs []dag.CommandSpec) dag.WorkFunc {
	cmds := make([]Command, len(specs))
	for i, spec := range specs {
		cmds[i] = FromSpec(spec)
	}
	return FanOut(b.Runner, cmds...)
}
