// Package audit provides the durable, append-only record of every security
// decision and execution outcome. Entries are newline-delimited JSON, one per
// line, appended in decision order. Audit writes are best-effort: a failed
// write never aborts the caller's operation, but failures are counted so
// operators can alert on a silently degraded trail.
package audit

import (
	"crypto/rand"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vibecli/vibe/internal/engine/enginetypes"
	"github.com/vibecli/vibe/internal/redaction"
)

// DefaultFileName is the audit log file name under the workspace state directory.
const DefaultFileName = "audit.log"

const (
	logDirPerm  = 0o700
	logFilePerm = 0o600
)

// Logger appends audit entries to a single JSONL file. The file is opened in
// append mode so individual line writes rely on the OS-level atomic append
// guarantee; no cross-entry atomicity is provided.
type Logger struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	entropy *ulid.MonotonicEntropy
	closed  bool

	enabled       bool
	masker        *redaction.Masker
	logger        *slog.Logger
	writeFailures atomic.Uint64
}

// Option configures a Logger.
type Option func(*Logger)

// WithEnabled toggles audit logging. When disabled, Log is a no-op.
func WithEnabled(enabled bool) Option {
	return func(l *Logger) { l.enabled = enabled }
}

// WithMasker sets the secret masker applied to command fields before persist.
func WithMasker(m *redaction.Masker) Option {
	return func(l *Logger) { l.masker = m }
}

// WithLogger sets the slog logger used to report audit write failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Logger) { l.logger = logger }
}

// NewLogger creates an audit logger writing to path. The file and its parent
// directory are created lazily on first write.
func NewLogger(path string, opts ...Option) *Logger {
	l := &Logger{
		path:    path,
		entropy: ulid.Monotonic(rand.Reader, 0),
		enabled: true,
		masker:  redaction.NewMasker(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Path returns the audit log file path.
func (l *Logger) Path() string {
	return l.path
}

// Log appends one entry. The entry's ID and Timestamp are assigned here, and
// the Command field is masked before encoding. Failures are swallowed and
// counted; audit logging must never surface an error to the decision path.
func (l *Logger) Log(entry enginetypes.AuditEntry) {
	if !l.enabled {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UTC()
	entry.ID = ulid.MustNew(ulid.Timestamp(now), l.entropy).String()
	entry.Timestamp = now.Format(time.RFC3339Nano)
	entry.Command = l.masker.Mask(entry.Command)

	line, err := json.Marshal(entry)
	if err != nil {
		l.recordFailure("marshal audit entry", err)
		return
	}

	if err := l.ensureOpenLocked(); err != nil {
		l.recordFailure("open audit log", err)
		return
	}

	line = append(line, '\n')
	if _, err := l.file.Write(line); err != nil {
		l.recordFailure("append audit entry", err)
	}
}

// WriteFailures returns the number of swallowed audit write failures.
func (l *Logger) WriteFailures() uint64 {
	return l.writeFailures.Load()
}

// Clear deletes the audit log file. This is an explicit, user-triggered
// operation only; the engine never clears the log automatically.
func (l *Logger) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
	err := os.Remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close releases the underlying file handle.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logger) ensureOpenLocked() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.path), logDirPerm); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFilePerm)
	if err != nil {
		return err
	}
	l.file = f
	return nil
}

func (l *Logger) recordFailure(op string, err error) {
	l.writeFailures.Add(1)
	l.logger.Warn("audit write failed", "op", op, "error", err)
}
