// Package tlsidentity loads or creates the long-lived self-signed TLS
// certificate MediaBus's HttpSurface terminates connections with. The
// certificate and key are persisted so the browser's trust-on-first-use
// decision survives a restart; the key is additionally wrapped under a
// store-local password, obfuscation rather than a security boundary
// (the host filesystem is the trust boundary).
package tlsidentity

import (
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const passwordByteLength = 32

// Store manages the on-disk certificate, wrapped key, and key-wrapping
// password under a single directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore returns a Store rooted at dir, creating dir if necessary.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("tlsidentity: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) certPath() string     { return filepath.Join(s.dir, "mediabus.crt") }
func (s *Store) keyPath() string      { return filepath.Join(s.dir, "mediabus.key.enc") }
func (s *Store) passwordPath() string { return filepath.Join(s.dir, "mediabus.key.pass") }

// Acquire returns a tls.Certificate bound to hostname. On first call (or
// whenever the persisted certificate is missing, unparsable, or
// expired) it generates and persists a new self-signed identity,
// overwriting whatever was there.
func (s *Store) Acquire(hostname string) (tls.Certificate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	password, err := s.loadOrCreatePassword()
	if err != nil {
		return tls.Certificate{}, err
	}

	if cert, key, ok := s.tryLoad(password); ok && !isExpired(cert, time.Now()) && cert.Subject.CommonName == hostname {
		return toTLSCertificate(cert, key), nil
	}

	cert, key, err := generateSelfSigned(hostname)
	if err != nil {
		return tls.Certificate{}, err
	}
	if err := s.persist(cert, key, password); err != nil {
		return tls.Certificate{}, err
	}
	return toTLSCertificate(cert, key), nil
}

// tryLoad attempts to read and decode the persisted cert/key. Any
// failure (missing file, bad PEM, wrong password, unparsable key)
// reports ok=false so Acquire regenerates rather than propagating the
// error — a corrupt identity store is not fatal, just a reason to mint
// a fresh one.
func (s *Store) tryLoad(password []byte) (*x509.Certificate, *ecdsa.PrivateKey, bool) {
	certPEM, err := os.ReadFile(s.certPath())
	if err != nil {
		return nil, nil, false
	}
	cert, err := decodeCertPEM(certPEM)
	if err != nil {
		return nil, nil, false
	}

	encKey, err := os.ReadFile(s.keyPath())
	if err != nil {
		return nil, nil, false
	}
	keyPEM, err := decryptKeyPEM(encKey, password)
	if err != nil {
		return nil, nil, false
	}
	key, err := decodeKeyPEM(keyPEM)
	if err != nil {
		return nil, nil, false
	}
	return cert, key, true
}

func (s *Store) persist(cert *x509.Certificate, key *ecdsa.PrivateKey, password []byte) error {
	if err := os.WriteFile(s.certPath(), encodeCertPEM(cert), 0644); err != nil {
		return fmt.Errorf("tlsidentity: write certificate: %w", err)
	}

	keyPEM, err := encodeKeyPEM(key)
	if err != nil {
		return fmt.Errorf("tlsidentity: encode key: %w", err)
	}
	encKey, err := encryptKeyPEM(keyPEM, password)
	if err != nil {
		return fmt.Errorf("tlsidentity: wrap key: %w", err)
	}
	if err := os.WriteFile(s.keyPath(), encKey, 0600); err != nil {
		return fmt.Errorf("tlsidentity: write wrapped key: %w", err)
	}
	return nil
}

func (s *Store) loadOrCreatePassword() ([]byte, error) {
	if encoded, err := os.ReadFile(s.passwordPath()); err == nil {
		return base64.StdEncoding.DecodeString(string(encoded))
	}

	password := make([]byte, passwordByteLength)
	if _, err := rand.Read(password); err != nil {
		return nil, fmt.Errorf("tlsidentity: generate password: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(password)
	if err := os.WriteFile(s.passwordPath(), []byte(encoded), 0600); err != nil {
		return nil, fmt.Errorf("tlsidentity: persist password: %w", err)
	}
	return password, nil
}

func toTLSCertificate(cert *x509.Certificate, key *ecdsa.PrivateKey) tls.Certificate {
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  key,
		Leaf:        cert,
	}
}
