package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/mediabus/mediabus-host/pkg/devicestore"
	"github.com/mediabus/mediabus-host/pkg/mblog"
	"github.com/mediabus/mediabus-host/pkg/token"
)

// Runtime is the single in-process authority over pairing, sessions and
// transfers. Every exported method takes the same global mutex; the one
// rule the rest of the package must never break is that the mutex is
// released before blocking on a per-device fairLock or doing I/O — see
// transfer.go's beginTransfer for the one place that matters.
type Runtime struct {
	mu sync.Mutex

	clock Clock
	codec *token.Codec
	store *devicestore.Store
	log   *mblog.Logger
	audit mblog.EventLogger

	settings HostSettings
	paired   map[string]*PairedDevice

	pendingByAnon  map[string]*PairChallenge // keyed by the requesting browser's anonymous cookie id
	pendingByToken map[string]*PairChallenge // keyed by PairChallenge.Token

	sessions        map[string]*Session // keyed by SessionID
	sessionByDevice map[string]string   // deviceID -> most recent SessionID

	deviceRuntime map[string]*DeviceRuntime
	revocations   map[string]*RevocationNotice // keyed by SessionID, one-shot

	transfers map[string]*Transfer

	uploadBatch   *batchState
	downloadBatch *batchState

	overallUploadTransferred   int64
	overallDownloadTransferred int64
}

// NewRuntime loads durable state from store and returns a ready Runtime.
// It does not start the presence ticker; callers that want periodic GC
// and presence recomputation must call StartPresenceLoop separately.
func NewRuntime(clock Clock, codec *token.Codec, store *devicestore.Store, log *mblog.Logger, audit mblog.EventLogger) (*Runtime, error) {
	settings, err := store.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	devices, err := store.LoadDevices()
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	if audit == nil {
		audit = mblog.NoopEventLogger{}
	}
	if log == nil {
		log = mblog.New(nil, "runtime")
	}

	paired := make(map[string]*PairedDevice, len(devices))
	for i := range devices {
		d := devices[i]
		paired[d.DeviceID] = &d
	}

	return &Runtime{
		clock:           clock,
		codec:           codec,
		store:           store,
		log:             log,
		audit:           audit,
		settings:        settings,
		paired:          paired,
		pendingByAnon:   make(map[string]*PairChallenge),
		pendingByToken:  make(map[string]*PairChallenge),
		sessions:        make(map[string]*Session),
		sessionByDevice: make(map[string]string),
		deviceRuntime:   make(map[string]*DeviceRuntime),
		revocations:     make(map[string]*RevocationNotice),
		transfers:       make(map[string]*Transfer),
	}, nil
}

// ensureDeviceRuntimeLocked returns the DeviceRuntime for deviceID,
// creating it on first reference. Callers must hold mu.
func (r *Runtime) ensureDeviceRuntimeLocked(deviceID string) *DeviceRuntime {
	dr, ok := r.deviceRuntime[deviceID]
	if !ok {
		dr = &DeviceRuntime{lock: newFairLock()}
		r.deviceRuntime[deviceID] = dr
	}
	return dr
}

// persistDevicesLocked flushes the in-memory paired-device map to the
// store. Callers must hold mu; the store write itself happens with mu
// held, which is acceptable because sqlite writes here are local and
// fast and every other store call in this package does the same.
func (r *Runtime) persistDevicesLocked() error {
	devices := make([]PairedDevice, 0, len(r.paired))
	for _, d := range r.paired {
		devices = append(devices, *d)
	}
	return r.store.SaveDevices(devices)
}

// emitPairing records a pairing-category audit event. Callers must hold
// mu (the audit sink itself must not block or re-enter Runtime).
func (r *Runtime) emitPairing(nowMs uint64, deviceID, kind string, ev *mblog.PairingEvent) {
	r.audit.LogEvent(mblog.Event{
		Timestamp: time.UnixMilli(int64(nowMs)),
		DeviceID:  deviceID,
		Category:  mblog.CategoryPairing,
		Kind:      kind,
		Pairing:   ev,
	})
}

// emitSession records a session-category audit event.
func (r *Runtime) emitSession(nowMs uint64, deviceID, sessionID, kind string, ev *mblog.SessionEvent) {
	r.audit.LogEvent(mblog.Event{
		Timestamp: time.UnixMilli(int64(nowMs)),
		DeviceID:  deviceID,
		SessionID: sessionID,
		Category:  mblog.CategorySession,
		Kind:      kind,
		Session:   ev,
	})
}

// emitTransfer records a transfer-category audit event.
func (r *Runtime) emitTransfer(nowMs uint64, deviceID, kind string, ev *mblog.TransferEvent) {
	r.audit.LogEvent(mblog.Event{
		Timestamp: time.UnixMilli(int64(nowMs)),
		DeviceID:  deviceID,
		Category:  mblog.CategoryTransfer,
		Kind:      kind,
		Transfer:  ev,
	})
}

// Settings returns the current host settings.
func (r *Runtime) Settings() HostSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// UpdateSettings persists new host settings and broadcasts them to any
// WatchSettings subscribers via the store.
func (r *Runtime) UpdateSettings(s HostSettings) error {
	r.mu.Lock()
	r.settings = s
	r.mu.Unlock()
	return r.store.SaveSettings(s)
}

// PairedDevices returns a snapshot of every currently paired device.
func (r *Runtime) PairedDevices() []PairedDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PairedDevice, 0, len(r.paired))
	for _, d := range r.paired {
		out = append(out, *d)
	}
	return out
}
