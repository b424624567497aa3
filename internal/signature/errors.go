// Package signature holds the signing capability, verification result
// types, and error taxonomy shared by the XAdES signer and verifier.
package signature

import "fmt"

// Error codes for signing and verification. Malformed documents,
// failed signatures, and policy mismatches are distinct classes for
// audit purposes and are never collapsed into one another.
const (
	ErrCodeNoSignature        = "NO_SIGNATURE"
	ErrCodeMalformedDocument  = "MALFORMED_DOCUMENT"
	ErrCodeVerificationFailed = "SIGNATURE_VERIFICATION_FAILED"
	ErrCodePolicyMismatch     = "POLICY_MISMATCH"
	ErrCodeCertificate        = "CERTIFICATE_ERROR"
	ErrCodeSigningFailed      = "SIGNATURE_FAILED"
	ErrCodeUnsupportedAlgo    = "UNSUPPORTED_ALGORITHM"
	ErrCodeChainInvalid       = "CHAIN_INVALID"
)

// Error represents a signing or verification failure.
type Error struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Field != "" && e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Code, e.Field, e.Message, e.Cause)
	}
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new signature error
func NewError(code, field, message string, cause error) *Error {
	return &Error{Code: code, Field: field, Message: message, Cause: cause}
}

// ErrNoSignature returns error when no signature is found in a document
func ErrNoSignature() *Error {
	return NewError(ErrCodeNoSignature, "", "no signature found in document", nil)
}

// ErrMalformed returns error for documents the verifier cannot read
func ErrMalformed(message string, cause error) *Error {
	return NewError(ErrCodeMalformedDocument, "", message, cause)
}

// ErrVerificationFailed returns error when cryptographic checks fail
func ErrVerificationFailed(message string, cause error) *Error {
	return NewError(ErrCodeVerificationFailed, "signature", message, cause)
}

// ErrPolicyMismatch returns error when the embedded policy hash does not
// match the configured one
func ErrPolicyMismatch(message string) *Error {
	return NewError(ErrCodePolicyMismatch, "policy", message, nil)
}

// ErrCertificate returns a non-retryable certificate/keystore error
func ErrCertificate(message string, cause error) *Error {
	return NewError(ErrCodeCertificate, "certificate", message, cause)
}

// ErrSigningFailed returns error when producing a signature fails
func ErrSigningFailed(message string, cause error) *Error {
	return NewError(ErrCodeSigningFailed, "signature", message, cause)
}
