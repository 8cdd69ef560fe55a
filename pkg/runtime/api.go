package runtime

// This file is the exported facade Runtime presents to HttpSurface and
// any other out-of-package caller. The methods backing it stay
// unexported because they assume internal locking discipline and
// Runtime-private types; everything here is a thin, stable rename.

// EnsurePendingChallenge returns the unexpired challenge already issued
// for anonID, or creates a fresh one.
func (r *Runtime) EnsurePendingChallenge(anonID, userAgent, ip string) PairChallenge {
	return r.ensurePendingChallenge(anonID, userAgent, ip)
}

// PairingStatus polls a pairing challenge by token.
func (r *Runtime) PairingStatus(tok string) PairingStatus {
	return r.pairingStatus(tok)
}

// ApproveByCode approves a pending challenge matched by its 6-digit code.
func (r *Runtime) ApproveByCode(code string) (PairedDevice, *Error) {
	return r.approveByCode(code)
}

// ApproveByToken approves a pending challenge matched by its token.
func (r *Runtime) ApproveByToken(tok string) (PairedDevice, *Error) {
	return r.approveByToken(tok)
}

// RevokeDevice removes a paired device's authorization and all of its
// live state. Returns false if the device was not paired.
func (r *Runtime) RevokeDevice(deviceID string) bool {
	return r.revokeDevice(deviceID)
}

// ConsumeRevocationNotice returns and clears a pending revocation
// notice for sessionID, if one exists and is unexpired.
func (r *Runtime) ConsumeRevocationNotice(sessionID string) (RevocationNotice, bool) {
	return r.consumeRevocationNotice(sessionID)
}

// CreateSessionForPairedDevice issues a signed session token for an
// already-paired device, or a PolicyDenied *Error if the concurrent
// device cap is reached.
func (r *Runtime) CreateSessionForPairedDevice(deviceID, ip string) (string, *Error) {
	return r.createSessionForPairedDevice(deviceID, ip)
}

// AuthenticateSession verifies a session cookie and returns the bound
// device, touching liveness timestamps when touch is true.
func (r *Runtime) AuthenticateSession(cookie, ip string, touch bool) AuthResult {
	return r.authenticateSession(cookie, ip, touch)
}

// DisconnectSession removes the session named by cookie. Idempotent.
func (r *Runtime) DisconnectSession(cookie string) {
	r.disconnectSession(cookie)
}

// Heartbeat refreshes a paired device's liveness timestamps.
func (r *Runtime) Heartbeat(deviceID, ip string) {
	r.heartbeat(deviceID, ip)
}

// BeginTransfer admits a new upload or download for deviceID following
// the three-phase Queue/Admit/Run protocol.
func (r *Runtime) BeginTransfer(deviceID string, direction Direction, totalBytes int64, batchID string, batchTotalFiles int, batchTotalBytes int64, batchCompletedFiles int) (*TransferTicket, *Error) {
	return r.beginTransfer(deviceID, direction, totalBytes, batchID, batchTotalFiles, batchTotalBytes, batchCompletedFiles)
}

// DecodeSessionCookie extracts the deviceId and sid claims from a
// signed session cookie without cross-checking Runtime's live session
// map or its expiry, so a caller can still learn which session a
// recently-revoked (and therefore already-deleted) cookie named — used
// to look up a pending RevocationNotice after authenticateSession has
// already reported the session invalid.
func (r *Runtime) DecodeSessionCookie(cookie string) (deviceID, sessionID string, ok bool) {
	if cookie == "" {
		return "", "", false
	}
	payload, err := r.codec.Verify(cookie, 0)
	if err != nil {
		return "", "", false
	}
	return payload.DeviceID, payload.SessionID, true
}

// SessionCookieName is the name of the signed-session cookie.
const SessionCookieName = "mb_session"

// AnonCookieName is the name of the pre-pairing anonymous-id cookie.
const AnonCookieName = "mb_anon"

// AnonCookieTTLMs is the lifetime of the anonymous pre-pairing cookie.
const AnonCookieTTLMs = 90 * 24 * 60 * 60 * 1000
