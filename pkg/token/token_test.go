package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCodec() *Codec {
	return NewCodec([]byte("0123456789abcdef0123456789abcdef"))
}

func TestSignVerifyRoundTrip(t *testing.T) {
	c := testCodec()
	p := NewSessionPayload("sid-1", "device-1", 2_000)

	signed := c.Sign(p)
	got, err := c.Verify(signed, 1_000)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestVerifyRejectsExpired(t *testing.T) {
	c := testCodec()
	signed := c.Sign(NewSessionPayload("sid-1", "device-1", 1_000))

	_, err := c.Verify(signed, 1_000)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	c := testCodec()
	bad := Payload{Kind: "other", SessionID: "sid-1", DeviceID: "device-1", ExpiresAtMs: 9_999}
	signed := c.Sign(bad)

	_, err := c.Verify(signed, 1_000)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	c := testCodec()
	signed := c.Sign(NewSessionPayload("sid-1", "device-1", 9_999))

	dot := strings.LastIndexByte(signed, '.')
	tampered := signed[:dot+1] + "A" + signed[dot+2:]

	_, err := c.Verify(tampered, 1_000)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsForgedDeviceIDWithMismatchedSession(t *testing.T) {
	// A token signed for device-1/sid-1 must not verify under a
	// different secret/device binding: simulate "forging the deviceId
	// claim" by re-signing with a codec whose secret the attacker does
	// not hold, then trying to verify with the real codec.
	c := testCodec()
	attacker := NewCodec([]byte("attacker-secret-attacker-secret"))

	forged := attacker.Sign(NewSessionPayload("sid-1", "device-2", 9_999))
	_, err := c.Verify(forged, 1_000)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsMissingSeparator(t *testing.T) {
	c := testCodec()
	_, err := c.Verify("not-a-valid-token", 1_000)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestVerifyRejectsNonBase64Payload(t *testing.T) {
	c := testCodec()
	_, err := c.Verify("not base64!.AAAA", 1_000)
	require.ErrorIs(t, err, ErrInvalid)
}

func TestCanonicalEncodingIsDeterministic(t *testing.T) {
	p := NewSessionPayload("sid-1", "device-1", 42)
	require.Equal(t, canonicalJSON(p), canonicalJSON(p))
	require.Equal(t,
		`{"kind":"session","sid":"sid-1","deviceId":"device-1","exp":42}`,
		string(canonicalJSON(p)),
	)
}
