// Package mblog provides MediaBus's two logging surfaces: ordinary
// operational diagnostics over log/slog, and a structured, CBOR-encoded
// audit trail of pairing/session/transfer events (see event.go). The two
// are deliberately separate — operational logs are for operators tailing
// stderr, the audit trail is for answering "what happened to device X"
// after the fact.
package mblog

import "log/slog"

// Logger is a thin wrapper around *slog.Logger scoped to a single
// component name. It exists so every package constructor in this module
// takes the same type rather than a bare *slog.Logger, making the
// component attribute impossible to forget.
type Logger struct {
	*slog.Logger
}

// New scopes base with a "component" attribute.
func New(base *slog.Logger, component string) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base.With("component", component)}
}

// With returns a Logger with additional attributes appended, preserving
// the component scope.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{l.Logger.With(args...)}
}
