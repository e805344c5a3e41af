package executor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
)

// runAttempt executes one attempt of a foreground command. A fresh
// ExecutionProgress is created per attempt; no partial state is carried over
// from earlier attempts.
func (e *ProcessExecutor) runAttempt(ctx context.Context, command string, opts Options) (*enginetypes.ShellResult, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	progress := enginetypes.ExecutionProgress{
		Command:   command,
		Status:    enginetypes.StatusStarting,
		StartTime: time.Now(),
	}
	e.publishProgress(opts, progress)

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = opts.Directory
	cmd.Env = buildEnv(opts.Env)
	// Own process group, so timeout and cancellation signals reach children
	// forked by the shell, not just the shell itself.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return e.spawnFailure(command, opts, &progress, err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return e.spawnFailure(command, opts, &progress, err)
	}

	if err := cmd.Start(); err != nil {
		return e.spawnFailure(command, opts, &progress, err)
	}

	pid := cmd.Process.Pid
	e.track(pid, cmd.Process)
	defer e.untrack(pid)

	progress.PID = pid
	progress.Status = enginetypes.StatusRunning
	e.publishProgress(opts, progress)

	stdout := newCappedBuffer(e.maxOutputBytes)
	stderr := newCappedBuffer(e.maxOutputBytes)

	var readers sync.WaitGroup
	var progressMu sync.Mutex
	readers.Add(2)
	go func() {
		defer readers.Done()
		readChunks(stdoutPipe, func(chunk []byte) {
			stdout.Append(chunk)
			if opts.StreamOutput && opts.OnStdout != nil {
				opts.OnStdout(chunk)
			}
			progressMu.Lock()
			progress.Stdout = stdout.String()
			progress.Duration = time.Since(progress.StartTime)
			snapshot := progress
			progressMu.Unlock()
			e.publishProgress(opts, snapshot)
		})
	}()
	go func() {
		defer readers.Done()
		readChunks(stderrPipe, func(chunk []byte) {
			stderr.Append(chunk)
			if opts.StreamOutput && opts.OnStderr != nil {
				opts.OnStderr(chunk)
			}
			progressMu.Lock()
			progress.Stderr = stderr.String()
			progress.Duration = time.Since(progress.StartTime)
			snapshot := progress
			progressMu.Unlock()
			e.publishProgress(opts, snapshot)
		})
	}()

	// Wait must run after the pipe readers finish, per os/exec.
	waitDone := make(chan error, 1)
	go func() {
		readers.Wait()
		waitDone <- cmd.Wait()
	}()

	// The timer must be stopped on normal completion so no dangling kill
	// fires after success.
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var timedOut, ctxCancelled bool
	var waitErr error
	select {
	case waitErr = <-waitDone:
	case <-timer.C:
		timedOut = true
		waitErr = terminate(pid, waitDone)
	case <-ctx.Done():
		ctxCancelled = true
		waitErr = terminate(pid, waitDone)
	}

	explicitCancel := e.consumeCancelled(pid)

	result := &enginetypes.ShellResult{
		Command:   command,
		Directory: opts.Directory,
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Duration:  time.Since(progress.StartTime),
		PID:       pid,
	}
	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
		result.Signal = terminationSignal(cmd.ProcessState)
	}

	progressMu.Lock()
	progress.ExitCode = result.ExitCode
	progress.Signal = result.Signal
	progress.Duration = result.Duration

	switch {
	case ctxCancelled || explicitCancel:
		progress.Status = enginetypes.StatusCancelled
		result.Err = fmt.Errorf("%w: %s", ErrCancelled, command)
	case timedOut:
		progress.Status = enginetypes.StatusFailed
		result.Err = fmt.Errorf("%w after %s: %s", ErrTimeout, timeout, command)
	case waitErr != nil:
		progress.Status = enginetypes.StatusFailed
		result.Err = fmt.Errorf("command failed with exit code %d: %w", result.ExitCode, waitErr)
	default:
		progress.Status = enginetypes.StatusCompleted
		result.Success = true
	}
	snapshot := progress
	progressMu.Unlock()
	e.publishProgress(opts, snapshot)

	return result, result.Err
}

// termGracePeriod is how long terminate waits for SIGTERM to take effect
// before escalating to SIGKILL.
const termGracePeriod = 2 * time.Second

// terminate signals the process group and waits for the process to be
// reaped. A group that ignores SIGTERM is killed after a grace period, so a
// timed-out command cannot hold the pipes open past the deadline.
func terminate(pid int, waitDone <-chan error) error {
	signalGroup(pid, syscall.SIGTERM)

	grace := time.NewTimer(termGracePeriod)
	defer grace.Stop()
	select {
	case err := <-waitDone:
		return err
	case <-grace.C:
		signalGroup(pid, syscall.SIGKILL)
		return <-waitDone
	}
}

// signalGroup signals the whole process group. The pgid equals the child's
// pid because every child is started with Setpgid.
func signalGroup(pid int, sig syscall.Signal) {
	_ = syscall.Kill(-pid, sig)
}

// spawnBackground starts a detached process: its own process group, output
// discarded, and the call returns immediately. The caller inspects or kills
// it later via Cancel.
func (e *ProcessExecutor) spawnBackground(command string, opts Options) (*enginetypes.ShellResult, error) {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = opts.Directory
	cmd.Env = buildEnv(opts.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return &enginetypes.ShellResult{
			Command:   command,
			Directory: opts.Directory,
			ExitCode:  -1,
			Success:   false,
			Err:       fmt.Errorf("failed to spawn background command: %w", err),
		}, fmt.Errorf("failed to spawn background command: %w", err)
	}

	pid := cmd.Process.Pid
	e.mu.Lock()
	e.processes[pid] = cmd.Process
	e.backgroundPIDs[pid] = struct{}{}
	e.mu.Unlock()

	e.logger.Info("background command started", "command", command, "pid", pid)

	// Reap the child when it exits so it does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
		e.untrack(pid)
	}()

	return &enginetypes.ShellResult{
		Command:   command,
		Directory: opts.Directory,
		Success:   true,
		PID:       pid,
	}, nil
}

func (e *ProcessExecutor) spawnFailure(command string, opts Options, progress *enginetypes.ExecutionProgress, err error) (*enginetypes.ShellResult, error) {
	progress.Status = enginetypes.StatusFailed
	progress.Duration = time.Since(progress.StartTime)
	e.publishProgress(opts, *progress)

	wrapped := fmt.Errorf("failed to spawn command: %w", err)
	return &enginetypes.ShellResult{
		Command:   command,
		Directory: opts.Directory,
		Stderr:    wrapped.Error(),
		ExitCode:  -1,
		Success:   false,
		Err:       wrapped,
	}, wrapped
}

func (e *ProcessExecutor) publishProgress(opts Options, snapshot enginetypes.ExecutionProgress) {
	if opts.OnProgress != nil {
		opts.OnProgress(snapshot)
	}
	if opts.Progress != nil {
		select {
		case opts.Progress <- snapshot:
		default:
		}
	}
}

// readChunks reads from r until EOF, invoking fn once per OS-level read.
func readChunks(r interface{ Read([]byte) (int, error) }, fn func([]byte)) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			fn(chunk)
		}
		if err != nil {
			return
		}
	}
}

// envAllowlist names the parent variables forwarded to child processes.
// Everything else, ambient credentials included, is dropped; callers opt
// additional values in through Options.Env.
var envAllowlist = []string{
	"PATH", "HOME", "USER", "LOGNAME", "SHELL", "TERM", "LANG", "LC_ALL", "TMPDIR", "TZ",
}

// buildEnv returns the child environment: the allowlisted subset of the
// parent environment with overrides appended, so overrides take precedence.
func buildEnv(overrides map[string]string) []string {
	env := make([]string, 0, len(envAllowlist)+len(overrides))
	for _, name := range envAllowlist {
		if value, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+value)
		}
	}
	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

// terminationSignal returns the symbolic name of the signal that terminated
// the process, or empty when it exited normally.
func terminationSignal(state *os.ProcessState) string {
	ws, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return ""
	}
	return signalName(ws.Signal())
}

var signalNames = map[syscall.Signal]string{
	syscall.SIGHUP:  "SIGHUP",
	syscall.SIGINT:  "SIGINT",
	syscall.SIGQUIT: "SIGQUIT",
	syscall.SIGKILL: "SIGKILL",
	syscall.SIGTERM: "SIGTERM",
}

func signalName(sig syscall.Signal) string {
	if name, ok := signalNames[sig]; ok {
		return name
	}
	return fmt.Sprintf("SIG(%d)", int(sig))
}

// cappedBuffer accumulates output up to a byte cap; further writes are
// dropped with a truncation note so a runaway process cannot exhaust memory.
type cappedBuffer struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int
	truncated bool
}

func newCappedBuffer(max int) *cappedBuffer {
	return &cappedBuffer{max: max}
}

func (b *cappedBuffer) Append(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.truncated {
		return
	}
	remaining := b.max - b.buf.Len()
	if remaining <= 0 || len(p) > remaining {
		if remaining > 0 {
			b.buf.Write(p[:remaining])
		}
		b.buf.WriteString("\n... (output truncated)")
		b.truncated = true
		return
	}
	b.buf.Write(p)
}

func (b *cappedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
