package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr is the attribute type accepted by archivist loggers.
type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

// Error attaches err under the "error" key.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// Identifier tags a record with the requested source identifier.
func Identifier(id string) Attr { return slog.String(FieldIdentifier, id) }

// Filename tags a record with the archived filename.
func Filename(name string) Attr { return slog.String(FieldFilename, name) }

// Host tags a record with a remote host.
func Host(host string) Attr { return slog.String(FieldHost, host) }

// Event classifies a record for filtering, e.g. "fetch_failed".
func Event(eventType string) Attr { return slog.String(FieldEventType, eventType) }

// Hint carries a short operator-facing suggestion.
func Hint(text string) Attr { return slog.String(FieldErrorHint, text) }

func toArgs(attrs []Attr) []any {
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}
	return args
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(discardHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
