package runtime

import (
	"strings"

	"github.com/mediabus/mediabus-host/pkg/mblog"
)

// ensurePendingChallenge returns the unexpired challenge already issued
// for anonId, or creates and stores a new one. It never leaves two live
// challenges mapped to the same anonId.
func (r *Runtime) ensurePendingChallenge(anonID, userAgent, ip string) PairChallenge {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.NowMs()
	if existing, ok := r.pendingByAnon[anonID]; ok && !existing.expired(now) {
		return *existing
	}

	c := &PairChallenge{
		Token:       newChallengeToken(),
		Code:        newPairCode(),
		UserAgent:   userAgent,
		IPAddress:   ip,
		CreatedAtMs: now,
		ExpiresAtMs: now + challengeTTLMs,
	}
	if prior, ok := r.pendingByAnon[anonID]; ok {
		delete(r.pendingByToken, prior.Token)
	}
	r.pendingByAnon[anonID] = c
	r.pendingByToken[c.Token] = c
	return *c
}

// PairingOutcome is the tri-state result of polling pairingStatus.
type PairingOutcome int

const (
	PairingPending PairingOutcome = iota
	PairingApproved
	PairingNotFound
)

// PairingStatus reports which of PairingOutcome applies, plus the
// challenge's expiry (Pending) or the approved device id (Approved).
type PairingStatus struct {
	Outcome     PairingOutcome
	ExpiresAtMs uint64
	DeviceID    string
}

// pairingStatus polls a challenge by its token. The first call that
// observes an approval consumes the challenge; every later poll of the
// same token returns NotFound, matching the preserved one-shot-consume
// behavior of the original implementation.
func (r *Runtime) pairingStatus(tok string) PairingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.pendingByToken[tok]
	if !ok {
		return PairingStatus{Outcome: PairingNotFound}
	}
	now := r.clock.NowMs()
	if c.expired(now) {
		r.removeChallengeLocked(c)
		return PairingStatus{Outcome: PairingNotFound}
	}
	if !c.approved() {
		return PairingStatus{Outcome: PairingPending, ExpiresAtMs: c.ExpiresAtMs}
	}

	deviceID := c.ApprovedDeviceID
	r.removeChallengeLocked(c)
	return PairingStatus{Outcome: PairingApproved, DeviceID: deviceID}
}

func (r *Runtime) removeChallengeLocked(c *PairChallenge) {
	for anonID, v := range r.pendingByAnon {
		if v == c {
			delete(r.pendingByAnon, anonID)
			break
		}
	}
	delete(r.pendingByToken, c.Token)
}

// approveByCode looks up an unexpired challenge by its 6-digit code and
// provisions a PairedDevice for it.
func (r *Runtime) approveByCode(code string) (PairedDevice, *Error) {
	return r.approve(func(c *PairChallenge) bool { return c.Code == code })
}

// approveByToken looks up an unexpired challenge by its token and
// provisions a PairedDevice for it.
func (r *Runtime) approveByToken(tok string) (PairedDevice, *Error) {
	return r.approve(func(c *PairChallenge) bool { return c.Token == tok })
}

func (r *Runtime) approve(match func(*PairChallenge) bool) (PairedDevice, *Error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.NowMs()
	var found *PairChallenge
	for _, c := range r.pendingByToken {
		if match(c) {
			found = c
			break
		}
	}
	if found == nil {
		return PairedDevice{}, newError(KindNotFound, "no such pairing challenge")
	}
	if found.expired(now) {
		r.removeChallengeLocked(found)
		return PairedDevice{}, newError(KindNotFound, "pairing challenge expired")
	}
	if found.approved() {
		// Already approved; approving again is a no-op success.
		if d, ok := r.paired[found.ApprovedDeviceID]; ok {
			return *d, nil
		}
	}

	device := &PairedDevice{
		DeviceID:          newDeviceID(),
		DisplayName:       displayNameFromUserAgent(found.UserAgent),
		UserAgent:         found.UserAgent,
		LastKnownIP:       found.IPAddress,
		CreatedAtMs:       now,
		LastConnectedAtMs: now,
	}
	r.paired[device.DeviceID] = device
	found.ApprovedDeviceID = device.DeviceID

	r.evictOldestIfOverCapacityLocked()

	if err := r.persistDevicesLocked(); err != nil {
		return PairedDevice{}, newError(KindInternal, "failed to persist paired device")
	}

	r.emitPairing(now, device.DeviceID, "approved", &mblog.PairingEvent{RemoteAddr: found.IPAddress})

	return *device, nil
}

// evictOldestIfOverCapacityLocked removes the oldest-created paired
// device once the paired set exceeds maxPairedDevices. Callers must
// hold mu.
func (r *Runtime) evictOldestIfOverCapacityLocked() {
	if len(r.paired) <= maxPairedDevices {
		return
	}
	var oldestID string
	var oldestAt uint64
	first := true
	for id, d := range r.paired {
		if first || d.CreatedAtMs < oldestAt {
			oldestID, oldestAt, first = id, d.CreatedAtMs, false
		}
	}
	if oldestID != "" {
		r.revokeDeviceLocked(oldestID)
	}
}

// revokeDevice removes a paired device's authorization entirely: the
// PairedDevice record, its Sessions, and its in-flight Transfers'
// entitlement to continue (via cancelGeneration).
func (r *Runtime) revokeDevice(deviceID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revokeDeviceLocked(deviceID)
}

func (r *Runtime) revokeDeviceLocked(deviceID string) bool {
	if _, ok := r.paired[deviceID]; !ok {
		return false
	}
	delete(r.paired, deviceID)

	if dr, ok := r.deviceRuntime[deviceID]; ok {
		dr.CancelGeneration++
	}

	// Drop this device's active transfers immediately rather than
	// waiting for its run loop to notice Cancelled() and call Close():
	// OverallProgress and batch accounting must stop counting a
	// revoked device's bytes the instant it's revoked, not on the next
	// progress tick.
	for id, tr := range r.transfers {
		if tr.DeviceID != deviceID {
			continue
		}
		delete(r.transfers, id)
		if dr, ok := r.deviceRuntime[deviceID]; ok {
			dr.ActiveTransfers--
		}
		r.completeBatchLocked(tr.Direction)
	}

	if sid, ok := r.sessionByDevice[deviceID]; ok {
		delete(r.sessions, sid)
		delete(r.sessionByDevice, deviceID)
		r.revocations[sid] = &RevocationNotice{DeviceID: deviceID, RevokedAtMs: r.clock.NowMs()}
	}

	if err := r.persistDevicesLocked(); err != nil {
		r.log.Error("failed to persist devices after revocation", "deviceId", deviceID, "err", err)
	}

	r.log.Info("device revoked", "deviceId", deviceID)
	r.emitPairing(r.clock.NowMs(), deviceID, "revoked", &mblog.PairingEvent{Reason: "revoked"})
	return true
}

// consumeRevocationNotice returns and clears a pending revocation notice
// for the session identified by sessionID, if one exists and its TTL
// hasn't elapsed.
func (r *Runtime) consumeRevocationNotice(sessionID string) (RevocationNotice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.revocations[sessionID]
	if !ok {
		return RevocationNotice{}, false
	}
	delete(r.revocations, sessionID)
	now := r.clock.NowMs()
	if n.RevokedAtMs+revocationNoticeTTLMs <= now {
		return RevocationNotice{}, false
	}
	return *n, true
}

// displayNameFromUserAgent derives a short, human-facing label from a
// raw User-Agent header. It is deliberately crude: a best-effort label,
// not a full UA parser.
func displayNameFromUserAgent(ua string) string {
	switch {
	case strings.Contains(ua, "iPhone"):
		return "iPhone"
	case strings.Contains(ua, "iPad"):
		return "iPad"
	case strings.Contains(ua, "Android"):
		return "Android device"
	case strings.Contains(ua, "Macintosh"):
		return "Mac"
	case strings.Contains(ua, "Windows"):
		return "Windows PC"
	case strings.Contains(ua, "Linux"):
		return "Linux device"
	default:
		return "Unknown device"
	}
}
