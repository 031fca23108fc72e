// Package errors provides the structured error type shared by parbuild
// packages.
//
// Every failure the scheduler surfaces carries a machine-readable ErrorCode,
// either directly (AppError) or through the ErrorCode method of a typed
// error such as dag.CycleError or scheduler.ActionFailure. CodeOf walks an
// error chain and reports the first code it finds.
package errors
