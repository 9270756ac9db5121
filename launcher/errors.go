package launcher

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrInvalidCommand indicates invalid command configuration.
	ErrInvalidCommand = errors.New("invalid command")

	// ErrTimeout indicates the process exceeded its timeout.
	ErrTimeout = errors.New("process timed out")

	// ErrStartFailed indicates the process could not be started.
	ErrStartFailed = errors.New("process start failed")

	// ErrBootstrapFailed indicates the boot environment could not be applied.
	ErrBootstrapFailed = errors.New("bootstrap failed")

	// ErrLauncherShutdown indicates the launcher is shut down.
	ErrLauncherShutdown = errors.New("launcher shutdown")
)

// ErrorCode provides structured error classification.
type ErrorCode string

const (
	// ErrCodeValidationFailed indicates validation failure.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeBootstrapFailed indicates the boot profile failed to apply.
	ErrCodeBootstrapFailed ErrorCode = "BOOTSTRAP_FAILED"

	// ErrCodeStartFailed indicates process start failure.
	ErrCodeStartFailed ErrorCode = "START_FAILED"

	// ErrCodeTimeout indicates timeout.
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeInternalError indicates internal error.
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// LaunchError provides detailed error information.
type LaunchError struct {
	// Op is the operation that failed.
	Op string

	// Process is the process name involved.
	Process string

	// Err is the underlying error.
	Err error

	// Code is the structured error code.
	Code ErrorCode

	// Details provides human-readable details.
	Details string

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error returns the error message.
func (e *LaunchError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Process, e.Details)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Process, e.Err)
}

// Unwrap returns the underlying error.
func (e *LaunchError) Unwrap() error {
	return e.Err
}

// Is reports whether the error matches the target.
func (e *LaunchError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// Error constructors for consistent error creation.

// NewTimeoutError creates a timeout error.
func NewTimeoutError(process string, timeout string) error {
	return &LaunchError{
		Op:        "run",
		Process:   process,
		Err:       ErrTimeout,
		Code:      ErrCodeTimeout,
		Details:   fmt.Sprintf("execution exceeded timeout of %s", timeout),
		Retryable: true,
	}
}

// NewStartError creates a process start error.
func NewStartError(process string, err error) error {
	return &LaunchError{
		Op:        "start",
		Process:   process,
		Err:       fmt.Errorf("%w: %v", ErrStartFailed, err),
		Code:      ErrCodeStartFailed,
		Retryable: true,
	}
}

// NewBootstrapError creates a bootstrap error.
func NewBootstrapError(process string, err error) error {
	return &LaunchError{
		Op:        "bootstrap",
		Process:   process,
		Err:       fmt.Errorf("%w: %v", ErrBootstrapFailed, err),
		Code:      ErrCodeBootstrapFailed,
		Retryable: false,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(process, field, message string) error {
	return &LaunchError{
		Op:        "validate",
		Process:   process,
		Err:       ErrInvalidCommand,
		Code:      ErrCodeValidationFailed,
		Details:   fmt.Sprintf("%s: %s", field, message),
		Retryable: false,
	}
}

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return launchErr.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var launchErr *LaunchError
	if errors.As(err, &launchErr) {
		return launchErr.Code
	}
	return ErrCodeInternalError
}
