package certs

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureCertificates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "certs")

	certPath, keyPath, err := EnsureCertificates(dir, "habits.test", "10.0.0.5", "")
	require.NoError(t, err)

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"localhost", "habits.test"}, cert.DNSNames)
	assert.NoError(t, cert.VerifyHostname("10.0.0.5"))
	assert.NoError(t, cert.VerifyHostname("127.0.0.1"))

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureCertificates_KeepsExisting(t *testing.T) {
	dir := t.TempDir()

	certPath, _, err := EnsureCertificates(dir)
	require.NoError(t, err)
	first, err := os.ReadFile(certPath)
	require.NoError(t, err)

	_, _, err = EnsureCertificates(dir, "other.test")
	require.NoError(t, err)
	second, err := os.ReadFile(certPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
