package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibecli/vibe/internal/engine/audit"
	"github.com/vibecli/vibe/internal/engine/enginetypes"
	"github.com/vibecli/vibe/internal/engine/security"
)

// The process table stores *os.Process directly.
var _ processHandle = (*os.Process)(nil)

func newTestExecutor(t *testing.T, opts ...ExecutorOption) *ProcessExecutor {
	t.Helper()
	return NewProcessExecutor(security.NewValidator(), nil, opts...)
}

func TestNewProcessExecutor_NilValidatorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewProcessExecutor(nil, nil)
	})
}

func TestExecute_EmptyCommand(t *testing.T) {
	exec := newTestExecutor(t)

	result, err := exec.Execute(context.Background(), "   ", Options{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrEmptyCommand)
}

func TestExecute_Success(t *testing.T) {
	exec := newTestExecutor(t)

	result, err := exec.Execute(context.Background(), "echo hello", Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.True(t, result.Success)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "hello\n", result.Stdout)
	assert.Empty(t, result.Stderr)
	assert.Greater(t, result.PID, 0)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestExecute_NonZeroExit(t *testing.T) {
	exec := newTestExecutor(t)

	result, err := exec.Execute(context.Background(), "exit 3", Options{})
	require.Error(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Success)
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, err.Error(), "exit code 3")
}

func TestExecute_WorkingDirectory(t *testing.T) {
	exec := newTestExecutor(t)
	dir := t.TempDir()

	result, err := exec.Execute(context.Background(), "pwd", Options{Directory: dir})
	require.NoError(t, err)
	assert.Equal(t, dir, strings.TrimSpace(result.Stdout))
	assert.Equal(t, dir, result.Directory)
}

func TestExecute_EnvOverrides(t *testing.T) {
	exec := newTestExecutor(t)

	result, err := exec.Execute(context.Background(), "echo $VIBE_TEST_VALUE", Options{
		Env: map[string]string{"VIBE_TEST_VALUE": "from-test"},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-test\n", result.Stdout)
}

func TestExecute_EnvAllowlist(t *testing.T) {
	exec := newTestExecutor(t)
	t.Setenv("VIBE_AMBIENT_SECRET", "hunter2")

	result, err := exec.Execute(context.Background(), `printf "%s" "$VIBE_AMBIENT_SECRET"`, Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Stdout, "ambient variables outside the allowlist must not reach children")

	result, err = exec.Execute(context.Background(), `printf "%s" "$PATH"`, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Stdout)

	result, err = exec.Execute(context.Background(), `printf "%s" "$VIBE_AMBIENT_SECRET"`, Options{
		Env: map[string]string{"VIBE_AMBIENT_SECRET": "opted-in"},
	})
	require.NoError(t, err)
	assert.Equal(t, "opted-in", result.Stdout)
}

func TestExecute_BlockedCommand(t *testing.T) {
	auditLogger := audit.NewLogger(filepath.Join(t.TempDir(), "audit.log"))
	exec := NewProcessExecutor(security.NewValidator(), auditLogger)

	result, err := exec.Execute(context.Background(), "rm -rf /", Options{})

	// A policy block is an expected outcome, not an execution error.
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Stderr, "blocked:")
	assert.ErrorIs(t, result.Err, ErrBlocked)
	assert.Zero(t, result.PID)

	entries, err := auditLogger.Recent(1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, enginetypes.AuditActionExecute, entries[0].Action)
	assert.Equal(t, enginetypes.AuditResultBlocked, entries[0].Result)
	assert.Equal(t, enginetypes.RiskLevelBlocked, entries[0].RiskLevel)
}

func TestExecute_DestructivePatternBlockedWithoutValidator(t *testing.T) {
	// A rule set with an empty deny list still cannot spawn a destructive
	// command: the hard-coded pattern check is independent.
	rules := security.DefaultRules()
	rules.Deny = nil
	exec := NewProcessExecutor(security.NewValidatorWithRules(rules), nil)

	result, err := exec.Execute(context.Background(), "mkfs.ext4 /dev/sda1", Options{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.ErrorIs(t, result.Err, ErrBlocked)
}

func TestExecute_Timeout(t *testing.T) {
	exec := newTestExecutor(t)

	start := time.Now()
	result, err := exec.Execute(context.Background(), "sleep 5", Options{Timeout: 100 * time.Millisecond})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "timed out")
	require.NotNil(t, result)
	assert.False(t, result.Success)

	// The deadline bounds wall-clock time even though the shell forks a
	// child that would otherwise hold the output pipes open for 5s.
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_ContextCancellation(t *testing.T) {
	exec := newTestExecutor(t)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	result, err := exec.Execute(ctx, "sleep 5", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCancelled)
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Less(t, time.Since(start), time.Second)
}

func TestExecute_RetryExhausted(t *testing.T) {
	exec := newTestExecutor(t)
	marker := filepath.Join(t.TempDir(), "attempts")

	start := time.Now()
	result, err := exec.Execute(context.Background(),
		"echo x >> "+marker+"; exit 1",
		Options{RetryCount: 2, RetryDelay: 20 * time.Millisecond})

	require.Error(t, err)
	assert.False(t, result.Success)

	data, readErr := os.ReadFile(marker)
	require.NoError(t, readErr)
	assert.Equal(t, 3, strings.Count(string(data), "x"), "expected initial attempt plus two retries")

	// Backoff doubles per retry: 20ms then 40ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.GreaterOrEqual(t, result.Duration, 60*time.Millisecond)
}

func TestExecute_RetrySucceedsOnSecondAttempt(t *testing.T) {
	exec := newTestExecutor(t)
	marker := filepath.Join(t.TempDir(), "marker")

	result, err := exec.Execute(context.Background(),
		"if [ -f "+marker+" ]; then echo recovered; else : > "+marker+"; exit 1; fi",
		Options{RetryCount: 3, RetryDelay: 10 * time.Millisecond})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Stdout, "recovered")
}

func TestExecute_NoRetryByDefault(t *testing.T) {
	exec := newTestExecutor(t)
	marker := filepath.Join(t.TempDir(), "attempts")

	_, err := exec.Execute(context.Background(), "echo x >> "+marker+"; exit 1", Options{})
	require.Error(t, err)

	data, readErr := os.ReadFile(marker)
	require.NoError(t, readErr)
	assert.Equal(t, 1, strings.Count(string(data), "x"))
}

func TestExecute_StreamingChunks(t *testing.T) {
	exec := newTestExecutor(t)

	var mu sync.Mutex
	var streamed strings.Builder
	result, err := exec.Execute(context.Background(), "echo one; echo two", Options{
		StreamOutput: true,
		OnStdout: func(chunk []byte) {
			mu.Lock()
			streamed.Write(chunk)
			mu.Unlock()
		},
	})

	require.NoError(t, err)
	mu.Lock()
	defer mu.Unlock()
	// Chunk callbacks see exactly the bytes that end up in the result.
	assert.Equal(t, result.Stdout, streamed.String())
	assert.Contains(t, streamed.String(), "one")
	assert.Contains(t, streamed.String(), "two")
}

func TestExecute_ProgressLifecycle(t *testing.T) {
	exec := newTestExecutor(t)

	var mu sync.Mutex
	var statuses []enginetypes.ExecutionStatus
	result, err := exec.Execute(context.Background(), "echo hi", Options{
		OnProgress: func(p enginetypes.ExecutionProgress) {
			mu.Lock()
			statuses = append(statuses, p.Status)
			mu.Unlock()
		},
	})

	require.NoError(t, err)
	require.True(t, result.Success)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	assert.Equal(t, enginetypes.StatusStarting, statuses[0])
	last := statuses[len(statuses)-1]
	assert.Equal(t, enginetypes.StatusCompleted, last)
	assert.True(t, last.Terminal())
}

func TestExecute_ProgressChannelNonBlocking(t *testing.T) {
	exec := newTestExecutor(t)

	// An unbuffered channel nobody reads must not stall execution.
	ch := make(chan enginetypes.ExecutionProgress)
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, err := exec.Execute(context.Background(), "echo hi", Options{Progress: ch})
		assert.NoError(t, err)
		assert.True(t, result.Success)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("execution stalled on a full progress channel")
	}
}

func TestExecute_OutputTruncation(t *testing.T) {
	exec := newTestExecutor(t, WithMaxOutputBytes(64))

	result, err := exec.Execute(context.Background(), "head -c 4096 /dev/zero | tr '\\0' 'a'", Options{})
	require.NoError(t, err)

	assert.Contains(t, result.Stdout, "(output truncated)")
	assert.Less(t, len(result.Stdout), 256)
}

func TestExecute_DryRun(t *testing.T) {
	exec := newTestExecutor(t, WithDryRun(true))
	target := filepath.Join(t.TempDir(), "file.txt")

	t.Run("write command rejected", func(t *testing.T) {
		result, err := exec.Execute(context.Background(), "touch "+target, Options{})
		require.NoError(t, err)
		assert.False(t, result.Success)
		assert.Equal(t, 1, result.ExitCode)
		assert.Equal(t, security.DryRunBlockReason, result.Stderr)
		assert.NoFileExists(t, target)
	})

	t.Run("read command still executes", func(t *testing.T) {
		result, err := exec.Execute(context.Background(), "echo hi", Options{})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Equal(t, "hi\n", result.Stdout)
	})
}

func TestExecute_Cancel(t *testing.T) {
	exec := newTestExecutor(t)

	pidCh := make(chan int, 1)
	resultCh := make(chan *enginetypes.ShellResult, 1)
	errCh := make(chan error, 1)
	go func() {
		result, err := exec.Execute(context.Background(), "sleep 5", Options{
			OnProgress: func(p enginetypes.ExecutionProgress) {
				if p.Status == enginetypes.StatusRunning && p.PID > 0 {
					select {
					case pidCh <- p.PID:
					default:
					}
				}
			},
		})
		resultCh <- result
		errCh <- err
	}()

	var pid int
	select {
	case pid = <-pidCh:
	case <-time.After(5 * time.Second):
		t.Fatal("process never reached running state")
	}

	require.True(t, exec.Cancel(pid, 0))

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(5 * time.Second):
		t.Fatal("execution did not finish after cancel")
	}
	result := <-resultCh
	assert.False(t, result.Success)
}

func TestCancel_UntrackedPID(t *testing.T) {
	exec := newTestExecutor(t)
	assert.False(t, exec.Cancel(999999, 0))
	assert.False(t, exec.Cancel(999999, syscall.SIGKILL))
}

func TestExecute_Background(t *testing.T) {
	exec := newTestExecutor(t)

	start := time.Now()
	result, err := exec.Execute(context.Background(), "sleep 3 &", Options{})
	require.NoError(t, err)

	// Detached spawn returns without waiting for the child.
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.True(t, result.Success)
	assert.Greater(t, result.PID, 0)
	assert.Contains(t, exec.BackgroundPIDs(), result.PID)
	assert.Contains(t, exec.ActivePIDs(), result.PID)

	assert.True(t, exec.Cancel(result.PID, 0))
	assert.NotContains(t, exec.BackgroundPIDs(), result.PID)
}

func TestIsBackgroundCommand(t *testing.T) {
	tests := []struct {
		command    string
		background bool
		stripped   string
	}{
		{"sleep 3 &", true, "sleep 3"},
		{"npm start&", true, "npm start"},
		{"echo a && echo b", false, "echo a && echo b"},
		{"echo plain", false, "echo plain"},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			background, stripped := isBackgroundCommand(tt.command)
			assert.Equal(t, tt.background, background)
			assert.Equal(t, tt.stripped, stripped)
		})
	}
}

func TestMatchesDestructivePattern(t *testing.T) {
	tests := []struct {
		command     string
		destructive bool
	}{
		{"rm -rf /", true},
		{"mkfs.ext4 /dev/sda", true},
		{"dd if=/dev/zero of=/dev/sda", true},
		{"shutdown -h now", true},
		{"rm -rf ./build", false},
		{"echo hello", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			_, destructive := matchesDestructivePattern(tt.command)
			assert.Equal(t, tt.destructive, destructive)
		})
	}
}

func TestCancelAll(t *testing.T) {
	exec := newTestExecutor(t)

	first, err := exec.Execute(context.Background(), "sleep 3 &", Options{})
	require.NoError(t, err)
	second, err := exec.Execute(context.Background(), "sleep 3 &", Options{})
	require.NoError(t, err)
	require.NotEqual(t, first.PID, second.PID)

	assert.Equal(t, 2, exec.CancelAll(0))
	assert.Empty(t, exec.ActivePIDs())
}
