package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction errors
const (
	// ErrCodeInvalidConfiguration indicates an operator or its host was
	// configured with invalid settings.
	ErrCodeInvalidConfiguration ErrorCode = "INVALID_CONFIGURATION"
)

// Lifecycle errors
const (
	// ErrCodeIllegalLifecycleState indicates a lifecycle call arrived in the wrong state,
	// such as a second Start or a Process after Stop.
	ErrCodeIllegalLifecycleState ErrorCode = "ILLEGAL_LIFECYCLE_STATE"
	// ErrCodePoolClosed indicates work was submitted to a worker pool that is shutting down.
	ErrCodePoolClosed ErrorCode = "POOL_CLOSED"
)

// Execution errors
const (
	// ErrCodeTaskFailed indicates one or more user function invocations failed.
	ErrCodeTaskFailed ErrorCode = "TASK_FAILED"
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
