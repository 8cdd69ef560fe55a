package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEnsurePendingChallengeReusesUnexpired(t *testing.T) {
	rt, _ := newTestRuntime(t)

	a := rt.ensurePendingChallenge("anon-1", "curl/8", "10.0.0.5")
	b := rt.ensurePendingChallenge("anon-1", "curl/8", "10.0.0.5")

	require.Equal(t, a.Token, b.Token)
	require.Equal(t, a.Code, b.Code)
}

func TestEnsurePendingChallengeReplacesAfterExpiry(t *testing.T) {
	rt, clock := newTestRuntime(t)

	a := rt.ensurePendingChallenge("anon-1", "curl/8", "10.0.0.5")
	clock.Advance(130 * time.Second) // past the 120s challenge TTL

	b := rt.ensurePendingChallenge("anon-1", "curl/8", "10.0.0.5")
	require.NotEqual(t, a.Token, b.Token)

	// The expired token must no longer resolve.
	status := rt.pairingStatus(a.Token)
	require.Equal(t, PairingNotFound, status.Outcome)
}

func TestApproveByCodeProvisionsDevice(t *testing.T) {
	rt, _ := newTestRuntime(t)

	c := rt.ensurePendingChallenge("anon-1", "Mozilla/5.0 (iPhone)", "10.0.0.5")
	d, rerr := rt.approveByCode(c.Code)
	require.Nil(t, rerr)
	require.NotEmpty(t, d.DeviceID)
	require.Equal(t, "iPhone", d.DisplayName)

	devices := rt.PairedDevices()
	require.Len(t, devices, 1)
	require.Equal(t, d.DeviceID, devices[0].DeviceID)
}

func TestApproveByCodeUnknownCodeFails(t *testing.T) {
	rt, _ := newTestRuntime(t)
	_, rerr := rt.approveByCode("000000")
	require.NotNil(t, rerr)
	require.Equal(t, KindNotFound, rerr.Kind)
}

func TestPairingStatusConsumesApprovalExactlyOnce(t *testing.T) {
	rt, _ := newTestRuntime(t)

	c := rt.ensurePendingChallenge("anon-1", "curl/8", "10.0.0.5")
	d, rerr := rt.approveByToken(c.Token)
	require.Nil(t, rerr)

	first := rt.pairingStatus(c.Token)
	require.Equal(t, PairingApproved, first.Outcome)
	require.Equal(t, d.DeviceID, first.DeviceID)

	second := rt.pairingStatus(c.Token)
	require.Equal(t, PairingNotFound, second.Outcome)
}

func TestPairingStatusPendingBeforeApproval(t *testing.T) {
	rt, _ := newTestRuntime(t)
	c := rt.ensurePendingChallenge("anon-1", "curl/8", "10.0.0.5")

	status := rt.pairingStatus(c.Token)
	require.Equal(t, PairingPending, status.Outcome)
	require.Equal(t, c.ExpiresAtMs, status.ExpiresAtMs)
}

func TestRevokeDeviceRemovesPairingAndSession(t *testing.T) {
	rt, _ := newTestRuntime(t)
	d, _ := approveNewDevice(t, rt, "anon-1", "curl/8", "10.0.0.5")

	_, rerr := rt.createSessionForPairedDevice(d.DeviceID, "10.0.0.5")
	require.Nil(t, rerr)

	ok := rt.revokeDevice(d.DeviceID)
	require.True(t, ok)
	require.Empty(t, rt.PairedDevices())

	again := rt.revokeDevice(d.DeviceID)
	require.False(t, again)
}

func TestEvictsOldestPairedDeviceOverCapacity(t *testing.T) {
	rt, clock := newTestRuntime(t)

	var first PairedDevice
	for i := 0; i < maxPairedDevices+1; i++ {
		d, _ := approveNewDevice(t, rt, anonIDFor(i), "curl/8", "10.0.0.5")
		if i == 0 {
			first = d
		}
		clock.Advance(time.Second)
	}

	devices := rt.PairedDevices()
	require.Len(t, devices, maxPairedDevices)
	for _, d := range devices {
		require.NotEqual(t, first.DeviceID, d.DeviceID)
	}
}

func anonIDFor(i int) string {
	return "anon-" + string(rune('a'+i))
}
