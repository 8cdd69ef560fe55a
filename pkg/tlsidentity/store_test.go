package tlsidentity

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// generateExpired builds a self-signed certificate whose validity window
// already closed, to exercise Acquire's regenerate-on-expiry path
// without waiting ten years.
func generateExpired(t *testing.T, hostname string) (*x509.Certificate, *ecdsa.PrivateKey) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: hostname},
		DNSNames:     []string{hostname},
		NotBefore:    time.Now().Add(-48 * time.Hour),
		NotAfter:     time.Now().Add(-24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
		BasicConstraintsValid: true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return cert, key
}

func TestAcquireGeneratesAndPersistsIdentity(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	first, err := s.Acquire("mediabus.local")
	require.NoError(t, err)
	require.NotNil(t, first.Leaf)
	require.Equal(t, "mediabus.local", first.Leaf.Subject.CommonName)

	second, err := s.Acquire("mediabus.local")
	require.NoError(t, err)
	require.Equal(t, first.Leaf.Raw, second.Leaf.Raw, "second Acquire should reuse the persisted identity")
}

func TestAcquireRegeneratesOnExpiry(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	password, err := s.loadOrCreatePassword()
	require.NoError(t, err)

	cert, key := generateExpired(t, "mediabus.local")
	require.True(t, isExpired(cert, time.Now()))

	require.NoError(t, s.persist(cert, key, password))

	got, err := s.Acquire("mediabus.local")
	require.NoError(t, err)
	require.NotEqual(t, cert.Raw, got.Leaf.Raw, "an already-stale-by-construction identity is never reused")
}

func TestAcquireRegeneratesOnCorruptKey(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	require.NoError(t, err)

	_, err = s.Acquire("mediabus.local")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(s.keyPath(), []byte("not a valid wrapped key"), 0600))

	got, err := s.Acquire("mediabus.local")
	require.NoError(t, err)
	require.NotNil(t, got.Leaf)
}
