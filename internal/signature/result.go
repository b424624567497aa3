package signature

import (
	"crypto/x509"
	"time"
)

// FailureClass distinguishes why verification rejected a document.
type FailureClass string

const (
	FailureNone      FailureClass = ""
	FailureMalformed FailureClass = "malformed-document"
	FailureSignature FailureClass = "signature-verification-failed"
	FailurePolicy    FailureClass = "policy-mismatch"
)

// VerificationResult contains the complete signature verification
// outcome. Individual checks stay separate so audit trails can tell a
// tampered document from a policy rollover.
type VerificationResult struct {
	// Overall validity - true only if all performed checks pass
	Valid bool `json:"valid"`

	// Individual check results
	SignatureFound bool `json:"signature_found"`
	DigestValid    bool `json:"digest_valid"`
	SignatureValid bool `json:"signature_valid"`
	PolicyValid    bool `json:"policy_valid"`

	// Trust chain check; only meaningful when ChainChecked is true
	ChainChecked bool `json:"chain_checked"`
	ChainValid   bool `json:"chain_valid,omitempty"`

	// FailureClass is the dominant failure kind, empty when valid
	FailureClass FailureClass `json:"failure_class,omitempty"`

	// Signer information
	Signer *SignerInfo `json:"signer,omitempty"`

	// Signing timestamp from the signed properties
	SignedAt *time.Time `json:"signed_at,omitempty"`

	// Certificate chain (not serialized to JSON)
	CertChain []*x509.Certificate `json:"-"`

	// Warnings (non-fatal issues)
	Warnings []string `json:"warnings,omitempty"`

	// Errors (reasons for an invalid result)
	Errors []string `json:"errors,omitempty"`
}

// SignerInfo contains certificate subject information
type SignerInfo struct {
	Name         string    `json:"name"`
	Organization string    `json:"organization,omitempty"`
	SerialNumber string    `json:"serial_number"`
	Issuer       string    `json:"issuer"`
	ValidFrom    time.Time `json:"valid_from"`
	ValidTo      time.Time `json:"valid_to"`
}

// NewVerificationResult creates a new empty result
func NewVerificationResult() *VerificationResult {
	return &VerificationResult{
		Warnings: make([]string, 0),
		Errors:   make([]string, 0),
	}
}

// AddWarning adds a warning message to the result
func (r *VerificationResult) AddWarning(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// AddError adds an error message and sets Valid to false
func (r *VerificationResult) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Valid = false
}

// Fail records the failure class (first one wins) and an error message.
func (r *VerificationResult) Fail(class FailureClass, msg string) {
	if r.FailureClass == FailureNone {
		r.FailureClass = class
	}
	r.AddError(msg)
}

// SetSigner populates SignerInfo from an x509 certificate
func (r *VerificationResult) SetSigner(cert *x509.Certificate) {
	if cert == nil {
		return
	}
	signer := &SignerInfo{
		SerialNumber: cert.SerialNumber.String(),
		ValidFrom:    cert.NotBefore,
		ValidTo:      cert.NotAfter,
	}
	if cert.Subject.CommonName != "" {
		signer.Name = cert.Subject.CommonName
	}
	if len(cert.Subject.Organization) > 0 {
		signer.Organization = cert.Subject.Organization[0]
	}
	if cert.Issuer.CommonName != "" {
		signer.Issuer = cert.Issuer.CommonName
	} else if len(cert.Issuer.Organization) > 0 {
		signer.Issuer = cert.Issuer.Organization[0]
	}
	r.Signer = signer
}

// ComputeValidity sets the Valid field from the individual checks.
// The chain check only participates when it was performed.
func (r *VerificationResult) ComputeValidity() {
	r.Valid = r.SignatureFound &&
		r.DigestValid &&
		r.SignatureValid &&
		r.PolicyValid &&
		(!r.ChainChecked || r.ChainValid) &&
		len(r.Errors) == 0
	if r.Valid {
		r.FailureClass = FailureNone
	}
}

// Reason returns a short audit string explaining an invalid result.
func (r *VerificationResult) Reason() string {
	if r.Valid {
		return "valid"
	}
	if len(r.Errors) > 0 {
		return r.Errors[0]
	}
	return string(r.FailureClass)
}
