package redaction

import (
	"context"
	"log/slog"
)

// RedactingHandler is a slog.Handler decorator that masks secret-shaped
// substrings in string attribute values and in the record message before
// forwarding to the underlying handler. Group values are walked recursively.
type RedactingHandler struct {
	handler slog.Handler
	masker  *Masker
}

// NewRedactingHandler creates a handler that masks secrets before forwarding
// to handler. A nil masker falls back to the default pattern set.
func NewRedactingHandler(handler slog.Handler, masker *Masker) *RedactingHandler {
	if masker == nil {
		masker = NewMasker()
	}
	return &RedactingHandler{handler: handler, masker: masker}
}

// Enabled reports whether the underlying handler handles records at level.
func (r *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return r.handler.Enabled(ctx, level)
}

// Handle masks the record and forwards it.
func (r *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	newRecord := slog.NewRecord(record.Time, record.Level, r.masker.Mask(record.Message), record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		newRecord.AddAttrs(r.maskAttr(attr))
		return true
	})
	return r.handler.Handle(ctx, newRecord)
}

// WithAttrs returns a new RedactingHandler with the given attributes masked.
func (r *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, 0, len(attrs))
	for _, attr := range attrs {
		masked = append(masked, r.maskAttr(attr))
	}
	return &RedactingHandler{handler: r.handler.WithAttrs(masked), masker: r.masker}
}

// WithGroup returns a new RedactingHandler with the given group name.
func (r *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: r.handler.WithGroup(name), masker: r.masker}
}

func (r *RedactingHandler) maskAttr(attr slog.Attr) slog.Attr {
	switch attr.Value.Kind() {
	case slog.KindString:
		return slog.String(attr.Key, r.masker.Mask(attr.Value.String()))
	case slog.KindGroup:
		groupAttrs := attr.Value.Group()
		masked := make([]slog.Attr, 0, len(groupAttrs))
		for _, ga := range groupAttrs {
			masked = append(masked, r.maskAttr(ga))
		}
		return slog.Attr{Key: attr.Key, Value: slog.GroupValue(masked...)}
	default:
		return attr
	}
}
