package tlsidentity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100_000
	saltLength       = 16
	keyLength        = 32 // AES-256
)

// ErrWrongPassword is returned when decryptKeyPEM fails to authenticate
// the ciphertext against the supplied password.
var ErrWrongPassword = errors.New("tlsidentity: key decryption failed")

// encryptKeyPEM wraps keyPEM (an "EC PRIVATE KEY" PEM block) with
// AES-256-GCM under a key derived from password via PBKDF2. This is
// obfuscation against casual inspection of the data directory, not a
// security boundary — the host filesystem itself is the trust boundary,
// same as the teacher's own per-zone key stores assume.
func encryptKeyPEM(keyPEM []byte, password []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("tlsidentity: generate salt: %w", err)
	}

	block, err := aes.NewCipher(pbkdf2.Key(password, salt, pbkdf2Iterations, keyLength, sha256.New))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("tlsidentity: generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, keyPEM, nil)

	out := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// decryptKeyPEM reverses encryptKeyPEM.
func decryptKeyPEM(data []byte, password []byte) ([]byte, error) {
	if len(data) < saltLength {
		return nil, ErrWrongPassword
	}
	salt, rest := data[:saltLength], data[saltLength:]

	block, err := aes.NewCipher(pbkdf2.Key(password, salt, pbkdf2Iterations, keyLength, sha256.New))
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(rest) < gcm.NonceSize() {
		return nil, ErrWrongPassword
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrWrongPassword
	}
	return plaintext, nil
}
