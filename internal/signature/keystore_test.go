package signature_test

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnvoice/elfatoora/internal/signature"
)

func testKeyPair(t *testing.T) (*rsa.PrivateKey, *x509.Certificate) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(4321),
		Subject: pkix.Name{
			CommonName:   "Société Test SARL",
			Organization: []string{"Société Test"},
			Country:      []string{"TN"},
		},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return key, cert
}

func TestSignDigest(t *testing.T) {
	key, cert := testKeyPair(t)
	sk := signature.NewSigningKey(key, cert, "sig-key")

	digest := sha256.Sum256([]byte("<TEIF version=\"1.8.8\"/>"))
	sig, err := sk.SignDigest(digest[:])
	require.NoError(t, err)

	err = rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], sig)
	assert.NoError(t, err, "signature must verify against the key's public half")
}

func TestInfo(t *testing.T) {
	key, cert := testKeyPair(t)
	sk := signature.NewSigningKey(key, cert, "sig-key")

	info := sk.Info()
	assert.Contains(t, info.Subject, "Société Test SARL")
	assert.Contains(t, info.Issuer, "Société Test SARL")
	assert.Equal(t, "4321", info.SerialNumber)
	assert.Equal(t, "sig-key", info.Alias)
	assert.Equal(t, cert.NotBefore, info.NotBefore)
	assert.Equal(t, cert.NotAfter, info.NotAfter)
}

func TestClose(t *testing.T) {
	key, cert := testKeyPair(t)
	sk := signature.NewSigningKey(key, cert, "sig-key")

	sk.Close()

	digest := sha256.Sum256([]byte("payload"))
	_, err := sk.SignDigest(digest[:])
	require.Error(t, err)
	var sigErr *signature.Error
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, signature.ErrCodeCertificate, sigErr.Code)

	// Closing twice is harmless.
	sk.Close()
}

func TestLoadPKCS12_MissingFile(t *testing.T) {
	_, err := signature.LoadPKCS12("testdata/does-not-exist.p12", "secret", "sig-key")
	require.Error(t, err)
	var sigErr *signature.Error
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, signature.ErrCodeCertificate, sigErr.Code)
}
