package runtime

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// newDeviceID returns a fresh UUID v4 string for a newly paired device.
func newDeviceID() string { return uuid.NewString() }

// newChallengeToken returns a 24-byte random token, base64url-encoded.
func newChallengeToken() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic("runtime: failed to read random bytes: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// newSessionID returns a 24-byte random session identifier, base64url
// encoded — sessions are bearer-token-like, not UUIDs.
func newSessionID() string {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		panic("runtime: failed to read random bytes: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// newTransferID returns a fresh random transfer identifier.
func newTransferID() string { return uuid.NewString() }

// newPairCode draws a uniformly random 6-digit decimal code, zero
// padded, the same way the host's earlier commissioning code generator
// drew its 8-digit setup codes: a single big.Int in [0, 10^n) via
// crypto/rand, formatted with a fixed width.
func newPairCode() string {
	max := big.NewInt(1_000_000) // 10^pairCodeDigits
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic("runtime: failed to read random bytes: " + err.Error())
	}
	return fmt.Sprintf("%06d", n.Int64())
}
