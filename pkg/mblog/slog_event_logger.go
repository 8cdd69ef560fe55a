package mblog

import (
	"context"
	"log/slog"
)

// SlogEventLogger mirrors audit events onto an *slog.Logger at debug
// level, for interactive use during development — the durable record is
// always the CBOR trail written by FileEventLogger.
type SlogEventLogger struct {
	logger *slog.Logger
}

// NewSlogEventLogger creates a SlogEventLogger writing to logger.
func NewSlogEventLogger(logger *slog.Logger) *SlogEventLogger {
	return &SlogEventLogger{logger: logger}
}

// LogEvent writes event as a single structured debug-level log line.
func (a *SlogEventLogger) LogEvent(event Event) {
	attrs := []slog.Attr{
		slog.String("category", event.Category.String()),
		slog.String("kind", event.Kind),
	}
	if event.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", event.DeviceID))
	}
	if event.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", event.SessionID))
	}

	switch {
	case event.Pairing != nil:
		if event.Pairing.RemoteAddr != "" {
			attrs = append(attrs, slog.String("remote_addr", event.Pairing.RemoteAddr))
		}
		if event.Pairing.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Pairing.Reason))
		}
	case event.Session != nil:
		if event.Session.RemoteAddr != "" {
			attrs = append(attrs, slog.String("remote_addr", event.Session.RemoteAddr))
		}
		if event.Session.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Session.Reason))
		}
	case event.Transfer != nil:
		attrs = append(attrs,
			slog.String("transfer_id", event.Transfer.TransferID),
			slog.String("path", event.Transfer.Path),
			slog.String("direction", event.Transfer.Direction.String()),
			slog.Int64("bytes_transferred", event.Transfer.BytesTransferred),
		)
		if event.Transfer.TotalBytes > 0 {
			attrs = append(attrs, slog.Int64("total_bytes", event.Transfer.TotalBytes))
		}
		if event.Transfer.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.Transfer.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "audit", attrs...)
}

var _ EventLogger = (*SlogEventLogger)(nil)
