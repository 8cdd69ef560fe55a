package runtime

import (
	"github.com/mediabus/mediabus-host/pkg/mblog"
	"github.com/mediabus/mediabus-host/pkg/token"
)

// createSessionForPairedDevice issues a fresh signed session token for
// an already-paired device, enforcing the concurrent-device cap. A
// device that already holds a session does not count against the cap
// when it replaces its own session.
func (r *Runtime) createSessionForPairedDevice(deviceID, ip string) (string, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.paired[deviceID]
	if !ok {
		return "", newError(KindNotFound, "device is not paired")
	}

	if _, hasSession := r.sessionByDevice[deviceID]; !hasSession {
		if r.distinctSessionDeviceCountLocked() >= maxConcurrentDevices {
			r.log.Warn("session denied: concurrent device cap reached", "deviceId", deviceID)
			return "", newError(KindPolicyDenied, "too many concurrently connected devices")
		}
	}

	now := r.clock.NowMs()
	r.dropSessionForDeviceLocked(deviceID)

	sessionID := newSessionID()
	expiresAt := now + sessionTTLMs
	r.sessions[sessionID] = &Session{
		SessionID:    sessionID,
		DeviceID:     deviceID,
		ExpiresAtMs:  expiresAt,
		LastSeenAtMs: now,
	}
	r.sessionByDevice[deviceID] = sessionID

	device.LastKnownIP = ip
	device.LastConnectedAtMs = now
	if err := r.persistDevicesLocked(); err != nil {
		return "", newError(KindInternal, "failed to persist device")
	}

	signed := r.codec.Sign(token.NewSessionPayload(sessionID, deviceID, expiresAt))
	r.emitSession(now, deviceID, sessionID, "created", &mblog.SessionEvent{RemoteAddr: ip})
	return signed, nil
}

// distinctSessionDeviceCountLocked counts distinct devices currently
// holding a session. Callers must hold mu.
func (r *Runtime) distinctSessionDeviceCountLocked() int {
	return len(r.sessionByDevice)
}

func (r *Runtime) dropSessionForDeviceLocked(deviceID string) {
	if sid, ok := r.sessionByDevice[deviceID]; ok {
		delete(r.sessions, sid)
		delete(r.sessionByDevice, deviceID)
	}
}

// AuthResult is the outcome of authenticateSession.
type AuthResult struct {
	Valid  bool
	Device PairedDevice
}

// authenticateSession verifies a session cookie, cross-checks the
// in-memory Session by sid, and rejects any cookie whose claimed
// deviceId doesn't match the Session it names (session binding). When
// touch is true it refreshes LastSeenAtMs and the device's connection
// timestamps.
func (r *Runtime) authenticateSession(cookie string, ip string, touch bool) AuthResult {
	if cookie == "" {
		return AuthResult{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.NowMs()
	payload, err := r.codec.Verify(cookie, now)
	if err != nil {
		return AuthResult{}
	}

	sess, ok := r.sessions[payload.SessionID]
	if !ok {
		return AuthResult{}
	}
	if sess.DeviceID != payload.DeviceID {
		return AuthResult{}
	}
	if sess.ExpiresAtMs <= now {
		delete(r.sessions, sess.SessionID)
		delete(r.sessionByDevice, sess.DeviceID)
		return AuthResult{}
	}

	device, ok := r.paired[sess.DeviceID]
	if !ok {
		return AuthResult{}
	}

	if touch {
		sess.LastSeenAtMs = now
		device.LastKnownIP = ip
		device.LastConnectedAtMs = now
		dr := r.ensureDeviceRuntimeLocked(device.DeviceID)
		dr.LastSeenAtMs = now
	}

	return AuthResult{Valid: true, Device: *device}
}

// disconnectSession removes the Session named by cookie, if any. It is
// idempotent: disconnecting an already-gone or invalid session is a
// no-op, not an error.
func (r *Runtime) disconnectSession(cookie string) {
	if cookie == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := r.codec.Verify(cookie, r.clock.NowMs())
	if err != nil {
		return
	}
	sess, ok := r.sessions[payload.SessionID]
	if !ok || sess.DeviceID != payload.DeviceID {
		return
	}
	delete(r.sessions, sess.SessionID)
	delete(r.sessionByDevice, sess.DeviceID)
	r.emitSession(r.clock.NowMs(), sess.DeviceID, sess.SessionID, "disconnected", nil)
}

// heartbeat refreshes a paired device's liveness timestamps.
func (r *Runtime) heartbeat(deviceID, ip string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.paired[deviceID]
	if !ok {
		return
	}
	now := r.clock.NowMs()
	device.LastKnownIP = ip
	device.LastConnectedAtMs = now
	dr := r.ensureDeviceRuntimeLocked(deviceID)
	dr.LastSeenAtMs = now
}
