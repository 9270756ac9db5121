package launcher

import (
	"time"
)

// Result contains the outcome of a completed process.
type Result struct {
	ResourceUsage *ResourceUsage
	Signal        string
	LaunchID      string
	Stdout        []byte
	Stderr        []byte
	Status        ExitStatus
	ExitCode      int
	Duration      time.Duration
	CPUTime       time.Duration
}

// ExitStatus represents the outcome of a process.
type ExitStatus int

const (
	// StatusSuccess indicates a clean exit (exit code 0).
	StatusSuccess ExitStatus = iota
	// StatusError indicates non-zero exit code.
	StatusError
	// StatusTimeout indicates execution timeout.
	StatusTimeout
	// StatusCanceled indicates context was canceled.
	StatusCanceled
	// StatusKilled indicates the process was killed by signal.
	StatusKilled
)

// String returns the string representation of the exit status.
func (s ExitStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	case StatusCanceled:
		return "canceled"
	case StatusKilled:
		return "killed"
	default:
		return "unknown"
	}
}

// IsSuccess returns true if the process exited cleanly.
func (s ExitStatus) IsSuccess() bool {
	return s == StatusSuccess
}

// ResourceUsage contains resource consumption metrics.
type ResourceUsage struct {
	// UserTime is the user CPU time consumed.
	UserTime time.Duration

	// SystemTime is the system CPU time consumed.
	SystemTime time.Duration
}

// TotalCPUTime returns the total CPU time (user + system).
func (r *ResourceUsage) TotalCPUTime() time.Duration {
	return r.UserTime + r.SystemTime
}

// Success returns true if the result indicates a clean exit.
func (r *Result) Success() bool {
	return r.Status == StatusSuccess && r.ExitCode == 0
}

// Failed returns true if the result indicates failure.
func (r *Result) Failed() bool {
	return !r.Success()
}

// StdoutString returns stdout as a string.
func (r *Result) StdoutString() string {
	return string(r.Stdout)
}

// StderrString returns stderr as a string.
func (r *Result) StderrString() string {
	return string(r.Stderr)
}
