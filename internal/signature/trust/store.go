// Package trust manages the optional CA pool used to check the chain of
// certificates embedded in signed invoices. Chain validation is an
// opt-in extension of signature verification: without a configured
// store, verification covers the cryptographic signature and policy
// only. There is no revocation checking here; this core performs no
// network I/O.
package trust

import (
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
)

// Store holds trusted root and intermediate CA certificates.
type Store struct {
	roots         *x509.CertPool
	intermediates *x509.CertPool
	count         int
}

// Option configures a Store.
type Option func(*Store) error

// NewStore creates an empty trust store.
func NewStore(opts ...Option) (*Store, error) {
	s := &Store{
		roots:         x509.NewCertPool(),
		intermediates: x509.NewCertPool(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// WithRootsFromFile loads root CA certificates from a PEM file.
func WithRootsFromFile(path string) Option {
	return func(s *Store) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("trust: cannot read CA file: %w", err)
		}
		return s.AddRootsFromPEM(data)
	}
}

// AddRoot adds a single root certificate.
func (s *Store) AddRoot(cert *x509.Certificate) {
	if cert != nil {
		s.roots.AddCert(cert)
		s.count++
	}
}

// AddIntermediate adds an intermediate certificate.
func (s *Store) AddIntermediate(cert *x509.Certificate) {
	if cert != nil {
		s.intermediates.AddCert(cert)
	}
}

// AddRootsFromPEM parses and adds root certificates from PEM data.
func (s *Store) AddRootsFromPEM(pemData []byte) error {
	var added int
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		pemData = rest
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("trust: unparseable certificate in PEM data: %w", err)
		}
		s.AddRoot(cert)
		added++
	}
	if added == 0 {
		return fmt.Errorf("trust: no certificates found in PEM data")
	}
	return nil
}

// Empty reports whether the store holds no roots.
func (s *Store) Empty() bool {
	return s.count == 0
}

// VerifyChain verifies the certificate chains to a trusted root.
// Returns the verified chain, longest first.
func (s *Store) VerifyChain(cert *x509.Certificate) ([]*x509.Certificate, error) {
	chains, err := cert.Verify(x509.VerifyOptions{
		Roots:         s.roots,
		Intermediates: s.intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageAny},
	})
	if err != nil {
		return nil, fmt.Errorf("trust: chain verification failed: %w", err)
	}
	return chains[0], nil
}
