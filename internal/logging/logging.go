// Package logging configures the process-wide structured logger. Every
// handler is wrapped in a redacting decorator so no unmasked secret reaches
// any log destination, regardless of which component emitted the record.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vibecli/vibe/internal/redaction"
)

// ParseLevel converts a level string (debug, info, warn, error) to a
// slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a text logger at level writing to w, with secret
// redaction applied before any record is handled.
func NewLogger(w io.Writer, level slog.Level, masker *redaction.Masker) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(redaction.NewRedactingHandler(handler, masker))
}

// Setup installs a redacting logger as the process default and returns it.
func Setup(level string) *slog.Logger {
	logger := NewLogger(os.Stderr, ParseLevel(level), nil)
	slog.SetDefault(logger)
	return logger
}
