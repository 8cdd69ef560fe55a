package mblog

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileEventLogger appends audit events to a file in CBOR format. Safe for
// concurrent use from multiple goroutines.
type FileEventLogger struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileEventLogger opens (creating if necessary) the audit log at path
// and appends subsequent events to it.
func NewFileEventLogger(path string) (*FileEventLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileEventLogger{
		file:    f,
		encoder: NewEventEncoder(f),
	}, nil
}

// LogEvent appends event to the log file. Safe for concurrent use.
func (l *FileEventLogger) LogEvent(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Encoding errors are swallowed: a broken audit trail must never
	// take down a transfer or a session.
	_ = l.encoder.Encode(event)
}

// Close closes the underlying file. Safe to call more than once; after
// Close, LogEvent is silently ignored.
func (l *FileEventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ EventLogger = (*FileEventLogger)(nil)
