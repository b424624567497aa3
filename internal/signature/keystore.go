package signature

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"os"
	"sync"
	"time"

	"golang.org/x/crypto/pkcs12"
)

// SigningKey is the immutable signing capability handed out by the
// keystore: it signs digests and exposes certificate metadata, but the
// private key never crosses this boundary as raw bytes. Safe for
// concurrent signing use until Close is called.
type SigningKey struct {
	mu     sync.RWMutex
	key    *rsa.PrivateKey
	cert   *x509.Certificate
	alias  string
	closed bool
}

// CertificateInfo is the non-secret certificate metadata exposed for
// operational diagnostics.
type CertificateInfo struct {
	Subject      string    `json:"subject"`
	Issuer       string    `json:"issuer"`
	SerialNumber string    `json:"serial_number"`
	NotBefore    time.Time `json:"not_before"`
	NotAfter     time.Time `json:"not_after"`
	Alias        string    `json:"alias"`
}

// LoadPKCS12 loads a signing key from a PKCS#12 keystore file. Failures
// are configuration errors, non-retryable, and never include key bytes.
func LoadPKCS12(path, password, alias string) (*SigningKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ErrCertificate("cannot read keystore file", err)
	}
	key, cert, err := pkcs12.Decode(data, password)
	// Drop the raw keystore bytes before doing anything else.
	for i := range data {
		data[i] = 0
	}
	if err != nil {
		return nil, ErrCertificate("cannot decode PKCS#12 keystore", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, ErrCertificate("keystore private key is not RSA", nil)
	}
	if cert == nil {
		return nil, ErrCertificate("keystore holds no certificate", nil)
	}
	return &SigningKey{key: rsaKey, cert: cert, alias: alias}, nil
}

// NewSigningKey wraps an already-loaded key pair, mainly for tests.
func NewSigningKey(key *rsa.PrivateKey, cert *x509.Certificate, alias string) *SigningKey {
	return &SigningKey{key: key, cert: cert, alias: alias}
}

// SignDigest signs a SHA-256 digest with RSA PKCS#1 v1.5.
func (k *SigningKey) SignDigest(digest []byte) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed || k.key == nil {
		return nil, ErrCertificate("signing key has been released", nil)
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, k.key, crypto.SHA256, digest)
	if err != nil {
		return nil, ErrSigningFailed("RSA signing failed", err)
	}
	return sig, nil
}

// Certificate returns the signer certificate.
func (k *SigningKey) Certificate() *x509.Certificate {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.cert
}

// Alias returns the configured key alias.
func (k *SigningKey) Alias() string {
	return k.alias
}

// Info returns the non-secret certificate metadata.
func (k *SigningKey) Info() CertificateInfo {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.cert == nil {
		return CertificateInfo{Alias: k.alias}
	}
	return CertificateInfo{
		Subject:      k.cert.Subject.String(),
		Issuer:       k.cert.Issuer.String(),
		SerialNumber: k.cert.SerialNumber.String(),
		NotBefore:    k.cert.NotBefore,
		NotAfter:     k.cert.NotAfter,
		Alias:        k.alias,
	}
}

// Close releases the key material. Further SignDigest calls fail.
// Release is deterministic; nothing is left to finalizers.
func (k *SigningKey) Close() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return
	}
	k.closed = true
	if k.key != nil {
		// Best-effort scrub of the private exponent and CRT values.
		k.key.D.SetInt64(0)
		for _, p := range k.key.Primes {
			p.SetInt64(0)
		}
		if k.key.Precomputed.Dp != nil {
			k.key.Precomputed.Dp.SetInt64(0)
		}
		if k.key.Precomputed.Dq != nil {
			k.key.Precomputed.Dq.SetInt64(0)
		}
		if k.key.Precomputed.Qinv != nil {
			k.key.Precomputed.Qinv.SetInt64(0)
		}
		k.key = nil
	}
}
