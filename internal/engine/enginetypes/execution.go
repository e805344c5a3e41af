package enginetypes

import (
	"time"
)

// ExecutionStatus represents the state of one execution attempt.
// Transitions: Starting -> Running -> {Completed | Failed | Cancelled}.
type ExecutionStatus int

const (
	// StatusStarting is entered immediately on call, before the OS process exists
	StatusStarting ExecutionStatus = iota

	// StatusRunning is entered once the process handle is obtained and a pid is known
	StatusRunning

	// StatusCompleted is reached on process exit with code 0 and no timeout
	StatusCompleted

	// StatusFailed is reached on non-zero exit, spawn error, or timeout
	StatusFailed

	// StatusCancelled is reached on explicit cancellation
	StatusCancelled
)

// String returns a string representation of ExecutionStatus
func (s ExecutionStatus) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is a terminal state
func (s ExecutionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// ExecutionProgress describes one running process. It is owned exclusively by
// the executor invocation that created it; callers receive read-only snapshots
// via the progress callback or channel and must never mutate them.
type ExecutionProgress struct {
	Command   string
	PID       int // 0 until the process handle is obtained
	Status    ExecutionStatus
	ExitCode  int // valid only in a terminal status
	Signal    string
	Stdout    string
	Stderr    string
	Duration  time.Duration
	StartTime time.Time
}

// ShellResult is the immutable outcome of one command execution. When retries
// are configured it describes the final attempt, with Duration spanning from
// the first attempt's start to the last attempt's end.
type ShellResult struct {
	Command   string
	Directory string
	Stdout    string
	Stderr    string
	ExitCode  int
	Signal    string
	Duration  time.Duration
	Success   bool
	Err       error
	PID       int
}
