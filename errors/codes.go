package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Graph errors
const (
	// ErrCodeCycleDetected indicates the action graph contains a cycle.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"
	// ErrCodeInvalidGraph indicates a malformed graph (unknown dependency, duplicate id, ...).
	ErrCodeInvalidGraph ErrorCode = "INVALID_GRAPH"
	// ErrCodeNotFound indicates a named graph, action or component was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Execution errors
const (
	// ErrCodeActionFailed indicates an action's work function returned an error.
	ErrCodeActionFailed ErrorCode = "ACTION_FAILED"
	// ErrCodeTaskFailed indicates an injected sub-task returned an error.
	ErrCodeTaskFailed ErrorCode = "TASK_FAILED"
	// ErrCodeAborted indicates the run was cancelled by the operator.
	ErrCodeAborted ErrorCode = "ABORTED"
	// ErrCodeToolFailed indicates an external tool (compiler, linker, ...) failed.
	ErrCodeToolFailed ErrorCode = "TOOL_FAILED"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates invalid scheduler or tool configuration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeToolFailed: true,
	ErrCodeAborted:    false,
	ErrCodeInternal:   false,
}

// IsRetryableCode returns true if re-running a fresh graph may succeed
// after an error with this code.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
