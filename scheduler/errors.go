package scheduler

import (
	"fmt"

	"github.com/kbukum/parbuild/dag"
	"github.com/kbukum/parbuild/errors"
)

// ActionFailure reports the action whose work function failed.
type ActionFailure struct {
	ID    dag.ActionID
	Cause error
}

func (e *ActionFailure) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.ID, e.Cause)
}

func (e *ActionFailure) Unwrap() error { return e.Cause }

// ErrorCode implements errors.Coded.
func (e *ActionFailure) ErrorCode() errors.ErrorCode { return errors.ErrCodeActionFailed }

// TaskFailure reports the first failed sub-task of a SubmitAndAwait batch.
// Index is the task's position in the submitted batch.
type TaskFailure struct {
	Index int
	Cause error
}

func (e *TaskFailure) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.Index, e.Cause)
}

func (e *TaskFailure) Unwrap() error { return e.Cause }

// ErrorCode implements errors.Coded.
func (e *TaskFailure) ErrorCode() errors.ErrorCode { return errors.ErrCodeTaskFailed }

// Aborted reports a run, or a wait inside it, that was stopped before
// finishing. Cause is the interrupt or the failure that latched the abort.
type Aborted struct {
	Cause error
}

func (e *Aborted) Error() string {
	if e.Cause == nil {
		return "build aborted"
	}
	return fmt.Sprintf("build aborted: %v", e.Cause)
}

func (e *Aborted) Unwrap() error { return e.Cause }

// ErrorCode implements errors.Coded.
func (e *Aborted) ErrorCode() errors.ErrorCode { return errors.ErrCodeAborted }
