// Package token implements MediaBus's signed opaque session tokens:
// HMAC-SHA256 over a canonical JSON payload, encoded as
// base64url(payload) + "." + base64url(signature). There is no JWT
// header segment — the wire format is fixed by the host's own design,
// not by a third-party token library.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned for any malformed or failed-verification token:
// missing separator, non-base64 segments, signature mismatch, an
// unparseable payload, a wrong kind, or an expired token. Callers are
// never told which of these applies, matching the "collapse to Invalid"
// failure mode spelled out for TokenCodec.
var ErrInvalid = errors.New("token: invalid")

// Payload is the signed content of a MediaBus session token.
type Payload struct {
	Kind      string
	SessionID string
	DeviceID  string
	ExpiresAtMs uint64
}

const kindSession = "session"

// NewSessionPayload builds a session-kind payload.
func NewSessionPayload(sessionID, deviceID string, expiresAtMs uint64) Payload {
	return Payload{
		Kind:        kindSession,
		SessionID:   sessionID,
		DeviceID:    deviceID,
		ExpiresAtMs: expiresAtMs,
	}
}

// canonicalJSON renders p with an explicit, fixed field order. This is
// deliberately not encoding/json's struct marshaling (whose field order
// happens to match here but is an implementation detail of the stdlib,
// not a contract) — the wire order is pinned by writing the bytes
// directly, so a future field reorder in this struct can never silently
// change what gets signed.
func canonicalJSON(p Payload) []byte {
	var b strings.Builder
	b.WriteString(`{"kind":`)
	writeJSONString(&b, p.Kind)
	b.WriteString(`,"sid":`)
	writeJSONString(&b, p.SessionID)
	b.WriteString(`,"deviceId":`)
	writeJSONString(&b, p.DeviceID)
	b.WriteString(`,"exp":`)
	fmt.Fprintf(&b, "%d", p.ExpiresAtMs)
	b.WriteString(`}`)
	return []byte(b.String())
}

func writeJSONString(b *strings.Builder, s string) {
	// json.Marshal on a bare string produces a correctly escaped,
	// double-quoted JSON string literal with no trailing newline.
	encoded, _ := json.Marshal(s)
	b.Write(encoded)
}

// Codec signs and verifies session tokens with a shared secret.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec using secret as the HMAC key. secret is
// typically the 32-byte value DeviceStore.loadOrCreateSecret returns.
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Sign produces a SignedToken string for payload.
func (c *Codec) Sign(payload Payload) string {
	payloadB64 := base64.RawURLEncoding.EncodeToString(canonicalJSON(payload))
	sig := c.mac(payloadB64)
	return payloadB64 + "." + base64.RawURLEncoding.EncodeToString(sig)
}

// Verify parses and validates token, checking the signature, the kind,
// and expiry against nowMs. On any failure it returns ErrInvalid.
//
// The signature is recomputed over the exact payload segment bytes as
// received — never over a re-serialized parse of the payload — so that
// a verifier whose JSON encoder orders keys differently can never
// silently accept or reject a token based on incidental formatting.
func (c *Codec) Verify(token string, nowMs uint64) (Payload, error) {
	dot := strings.LastIndexByte(token, '.')
	if dot < 0 {
		return Payload{}, ErrInvalid
	}
	payloadB64, sigB64 := token[:dot], token[dot+1:]

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return Payload{}, ErrInvalid
	}
	expected := c.mac(payloadB64)
	if !hmac.Equal(sig, expected) {
		return Payload{}, ErrInvalid
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return Payload{}, ErrInvalid
	}

	var wire struct {
		Kind      string `json:"kind"`
		SessionID string `json:"sid"`
		DeviceID  string `json:"deviceId"`
		Exp       uint64 `json:"exp"`
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return Payload{}, ErrInvalid
	}
	if wire.Kind != kindSession {
		return Payload{}, ErrInvalid
	}
	if wire.Exp <= nowMs {
		return Payload{}, ErrInvalid
	}

	return Payload{
		Kind:        wire.Kind,
		SessionID:   wire.SessionID,
		DeviceID:    wire.DeviceID,
		ExpiresAtMs: wire.Exp,
	}, nil
}

func (c *Codec) mac(payloadB64 string) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(payloadB64))
	return h.Sum(nil)
}
