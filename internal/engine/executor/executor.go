// Package executor spawns, streams, times out, retries, and cancels shell
// commands on behalf of the engine. Every spawn is gated by the command
// validator plus an independent hard-coded destructive-pattern check; a
// blocked command never reaches the OS.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/vibecli/vibe/internal/engine/audit"
	"github.com/vibecli/vibe/internal/engine/enginetypes"
	"github.com/vibecli/vibe/internal/engine/security"
)

// Error definitions
var (
	// ErrEmptyCommand is returned when an empty command string is executed
	ErrEmptyCommand = errors.New("command cannot be empty")

	// ErrTimeout is returned when a process exceeds its allotted time
	ErrTimeout = errors.New("command timed out")

	// ErrCancelled is returned when execution is cancelled by the caller
	ErrCancelled = errors.New("command cancelled")

	// ErrBlocked is carried by results for commands rejected by policy
	ErrBlocked = errors.New("command blocked by policy")
)

const (
	// DefaultTimeout bounds one attempt when no timeout is configured
	DefaultTimeout = 2 * time.Minute

	// DefaultMaxOutputBytes caps captured stdout/stderr per stream
	DefaultMaxOutputBytes = 1 << 20
)

// Options controls one Execute call.
type Options struct {
	// Directory is the working directory; empty means the current directory.
	Directory string

	// Env contains environment overrides applied on top of the executor's
	// base environment.
	Env map[string]string

	// Timeout bounds one attempt. Zero means the executor default.
	Timeout time.Duration

	// StreamOutput enables OnStdout/OnStderr callbacks. Callbacks are
	// invoked once per OS-level data chunk; chunk boundaries are not
	// guaranteed to align with lines.
	StreamOutput bool
	OnStdout     func(chunk []byte)
	OnStderr     func(chunk []byte)

	// OnProgress is invoked with a snapshot of the execution progress on
	// every state transition and output chunk. It may be called from a
	// goroutine concurrent with the caller.
	OnProgress func(enginetypes.ExecutionProgress)

	// Progress, when non-nil, receives the same snapshots as OnProgress.
	// Sends are non-blocking: a full channel drops the snapshot rather
	// than stalling process I/O.
	Progress chan<- enginetypes.ExecutionProgress

	// RetryCount is the number of additional attempts after a failure.
	// RetryDelay seeds the exponential backoff between attempts.
	RetryCount int
	RetryDelay time.Duration
}

// ProcessExecutor runs commands and tracks all in-flight processes. It is an
// explicitly constructed, injectable object: the process table is owned by
// the instance and guarded by its mutex, never shared ambient state.
type ProcessExecutor struct {
	mu             sync.Mutex
	processes      map[int]processHandle
	backgroundPIDs map[int]struct{}
	cancelledPIDs  map[int]struct{}

	validator      *security.Validator
	auditLogger    *audit.Logger
	logger         *slog.Logger
	defaultTimeout time.Duration
	maxOutputBytes int
	dryRun         bool
}

// processHandle is the subset of *os.Process the process table needs.
type processHandle interface {
	Signal(sig os.Signal) error
}

// ExecutorOption configures a ProcessExecutor.
type ExecutorOption func(*ProcessExecutor)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *ProcessExecutor) { e.logger = logger }
}

// WithDefaultTimeout sets the per-attempt timeout used when options omit one.
func WithDefaultTimeout(d time.Duration) ExecutorOption {
	return func(e *ProcessExecutor) { e.defaultTimeout = d }
}

// WithMaxOutputBytes caps captured output per stream.
func WithMaxOutputBytes(n int) ExecutorOption {
	return func(e *ProcessExecutor) { e.maxOutputBytes = n }
}

// WithDryRun makes every Execute call validate and audit without spawning.
func WithDryRun(dryRun bool) ExecutorOption {
	return func(e *ProcessExecutor) { e.dryRun = dryRun }
}

// NewProcessExecutor creates an executor. validator must not be nil;
// auditLogger may be nil to disable audit records from the executor.
func NewProcessExecutor(validator *security.Validator, auditLogger *audit.Logger, opts ...ExecutorOption) *ProcessExecutor {
	if validator == nil {
		panic("NewProcessExecutor: validator cannot be nil")
	}
	e := &ProcessExecutor{
		processes:      make(map[int]processHandle),
		backgroundPIDs: make(map[int]struct{}),
		validator:      validator,
		auditLogger:    auditLogger,
		logger:         slog.Default(),
		defaultTimeout: DefaultTimeout,
		maxOutputBytes: DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Execute runs command under opts and returns the terminal result. Policy
// blocks are expected outcomes, returned as a failed result with a nil error.
// Spawn failures, timeouts, and non-zero exits are retried with exponential
// backoff up to opts.RetryCount additional attempts before the last error is
// surfaced alongside the final result. Cancellation is terminal and is never
// retried. The result's Duration spans from the first attempt's start to the
// last attempt's end.
func (e *ProcessExecutor) Execute(ctx context.Context, command string, opts Options) (*enginetypes.ShellResult, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}

	// Safety gate: validator plus the independent legacy destructive check.
	// Either one blocking is sufficient; no process is spawned for a
	// blocked command.
	validation := e.validator.Validate(command)
	if !validation.Allowed {
		return e.blockedResult(command, opts, validation.Reason), nil
	}
	if reason, destructive := matchesDestructivePattern(command); destructive {
		return e.blockedResult(command, opts, reason), nil
	}

	// Dry-run rejection is mode-dependent, not a statement that the command
	// is inherently unsafe; read-only commands still execute.
	if e.dryRun && validation.OperationType != enginetypes.OperationRead {
		result := &enginetypes.ShellResult{
			Command:   command,
			Directory: opts.Directory,
			Stderr:    security.DryRunBlockReason,
			ExitCode:  1,
			Success:   false,
		}
		e.logOutcome(command, validation, result, true)
		return result, nil
	}

	// Background execution: detach and return immediately.
	if background, stripped := isBackgroundCommand(command); background {
		result, err := e.spawnBackground(stripped, opts)
		if err == nil {
			e.logOutcome(command, validation, result, false)
		}
		return result, err
	}

	start := time.Now()
	var result *enginetypes.ShellResult
	var attemptErr error

	for attempt := 0; ; attempt++ {
		// Every attempt passes the safety gate; a retry never respawns a
		// command the validator no longer allows.
		if attempt > 0 {
			validation = e.validator.Validate(command)
			if !validation.Allowed {
				return e.blockedResult(command, opts, validation.Reason), nil
			}
			if reason, destructive := matchesDestructivePattern(command); destructive {
				return e.blockedResult(command, opts, reason), nil
			}
		}
		result, attemptErr = e.runAttempt(ctx, command, opts)

		if attemptErr == nil || errors.Is(attemptErr, ErrCancelled) {
			break
		}
		if attempt >= opts.RetryCount {
			break
		}

		backoff := opts.RetryDelay << attempt
		e.logger.Info("retrying command",
			"command", command,
			"attempt", attempt+1,
			"max_attempts", opts.RetryCount+1,
			"backoff", backoff,
			"error", attemptErr)
		if !sleepCtx(ctx, backoff) {
			attemptErr = fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
			break
		}
	}

	// Duration spans all attempts, including backoff sleeps.
	result.Duration = time.Since(start)
	result.Err = attemptErr
	e.logOutcome(command, validation, result, false)
	return result, attemptErr
}

func (e *ProcessExecutor) blockedResult(command string, opts Options, reason string) *enginetypes.ShellResult {
	if reason == "" {
		reason = "command blocked by security policy"
	}
	result := &enginetypes.ShellResult{
		Command:   command,
		Directory: opts.Directory,
		Stderr:    fmt.Sprintf("blocked: %s", reason),
		ExitCode:  1,
		Success:   false,
		Err:       fmt.Errorf("%w: %s", ErrBlocked, reason),
	}
	if e.auditLogger != nil {
		e.auditLogger.Log(enginetypes.AuditEntry{
			Action:        enginetypes.AuditActionExecute,
			Command:       command,
			RiskLevel:     enginetypes.RiskLevelBlocked,
			Result:        enginetypes.AuditResultBlocked,
			OperationType: enginetypes.OperationWrite.String(),
			DryRun:        e.dryRun,
		})
	}
	return result
}

func (e *ProcessExecutor) logOutcome(command string, validation enginetypes.CommandValidation, result *enginetypes.ShellResult, dryRun bool) {
	if e.auditLogger == nil {
		return
	}
	auditResult := enginetypes.AuditResultSuccess
	if !result.Success {
		auditResult = enginetypes.AuditResultFailure
	}
	e.auditLogger.Log(enginetypes.AuditEntry{
		Action:        enginetypes.AuditActionExecute,
		Command:       command,
		RiskLevel:     validation.RiskLevel,
		Approved:      !validation.RequiresApproval,
		Result:        auditResult,
		OperationType: validation.OperationType.String(),
		DryRun:        dryRun,
	})
}

// sleepCtx sleeps for d or until ctx is done. Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// isBackgroundCommand reports whether command requests detachment with a
// trailing '&', returning the command with the suffix stripped.
func isBackgroundCommand(command string) (bool, string) {
	if strings.HasSuffix(command, "&") && !strings.HasSuffix(command, "&&") {
		return true, strings.TrimSpace(strings.TrimSuffix(command, "&"))
	}
	return false, command
}
