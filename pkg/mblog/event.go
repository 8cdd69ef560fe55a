package mblog

import "time"

// Event is a single audit-trail record: a pairing, session, or transfer
// lifecycle event. CBOR encoding uses integer keys for compactness, the
// same convention the teacher's wire-protocol event log used.
type Event struct {
	// Timestamp when the event occurred.
	Timestamp time.Time `cbor:"1,keyasint"`

	// DeviceID identifies the device involved, if any.
	DeviceID string `cbor:"2,keyasint,omitempty"`

	// SessionID identifies the session involved, if any.
	SessionID string `cbor:"3,keyasint,omitempty"`

	// Category classifies which subsystem produced the event.
	Category Category `cbor:"4,keyasint"`

	// Kind is a short, category-specific event name (e.g. "approved").
	Kind string `cbor:"5,keyasint"`

	// Type-specific payload (at most one of these will be set).
	Pairing  *PairingEvent  `cbor:"6,keyasint,omitempty"`
	Session  *SessionEvent  `cbor:"7,keyasint,omitempty"`
	Transfer *TransferEvent `cbor:"8,keyasint,omitempty"`
	Error    *ErrorEvent    `cbor:"9,keyasint,omitempty"`
}

// Category classifies the subsystem an event originated from.
type Category uint8

const (
	// CategoryPairing indicates a pairing/challenge/approval event.
	CategoryPairing Category = 0
	// CategorySession indicates a session lifecycle event.
	CategorySession Category = 1
	// CategoryTransfer indicates a file transfer lifecycle event.
	CategoryTransfer Category = 2
	// CategoryError indicates an error event not tied to the above.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPairing:
		return "PAIRING"
	case CategorySession:
		return "SESSION"
	case CategoryTransfer:
		return "TRANSFER"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// PairingEvent captures a pairing challenge or approval/revocation event.
type PairingEvent struct {
	// RemoteAddr is the requesting peer's address (IP:port).
	RemoteAddr string `cbor:"1,keyasint,omitempty"`

	// Reason explains a denial or revocation, if applicable.
	Reason string `cbor:"2,keyasint,omitempty"`
}

// SessionEvent captures a session creation, authentication, or teardown.
type SessionEvent struct {
	// RemoteAddr is the peer address that created or used the session.
	RemoteAddr string `cbor:"1,keyasint,omitempty"`

	// Reason explains a disconnect or expiry, if applicable.
	Reason string `cbor:"2,keyasint,omitempty"`
}

// Direction indicates which way bytes moved for a transfer event.
type Direction uint8

const (
	// DirectionUpload indicates bytes moved from client to host.
	DirectionUpload Direction = 0
	// DirectionDownload indicates bytes moved from host to client.
	DirectionDownload Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionUpload:
		return "UPLOAD"
	case DirectionDownload:
		return "DOWNLOAD"
	default:
		return "UNKNOWN"
	}
}

// TransferEvent captures a file transfer lifecycle event.
type TransferEvent struct {
	// TransferID identifies the transfer.
	TransferID string `cbor:"1,keyasint"`

	// Path is the repository-relative path being transferred.
	Path string `cbor:"2,keyasint,omitempty"`

	// Direction indicates upload vs. download.
	Direction Direction `cbor:"3,keyasint"`

	// BytesTransferred is the cumulative byte count at the time of the event.
	BytesTransferred int64 `cbor:"4,keyasint,omitempty"`

	// TotalBytes is the expected total size, if known.
	TotalBytes int64 `cbor:"5,keyasint,omitempty"`

	// Reason explains a cancellation or failure, if applicable.
	Reason string `cbor:"6,keyasint,omitempty"`
}

// ErrorEvent captures an error not naturally attached to one of the
// categories above.
type ErrorEvent struct {
	// Message is the error text.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`
}
