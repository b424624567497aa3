package model

import (
	"fmt"
	"strings"
)

// Stable error codes surfaced to callers. Codes are part of the API
// contract and never renamed.
const (
	ErrCodeInvalidXMLStructure   = "INVALID_XML_STRUCTURE"
	ErrCodeSchemaValidation      = "SCHEMA_VALIDATION_FAILED"
	ErrCodeInvalidTaxIdentifier  = "INVALID_TAX_IDENTIFIER"
	ErrCodeInvalidDateFormat     = "INVALID_DATE_FORMAT"
	ErrCodeCertificate           = "CERTIFICATE_ERROR"
	ErrCodeSignatureFailed       = "SIGNATURE_FAILED"
	ErrCodeSignatureVerification = "SIGNATURE_VERIFICATION_FAILED"
	ErrCodeTaxCalculation        = "TAX_CALCULATION_ERROR"
	ErrCodeMissingRequiredField  = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidDocumentType   = "INVALID_DOCUMENT_TYPE"
	ErrCodeInvalidAmountFormat   = "INVALID_AMOUNT_FORMAT"
	ErrCodeInvalidPostalCode     = "INVALID_POSTAL_CODE"
	ErrCodeInvalidTaxRate        = "INVALID_TAX_RATE"
	ErrCodeInvalidCurrency       = "INVALID_CURRENCY"
	ErrCodeXMLParsing            = "XML_PARSING_ERROR"
	ErrCodeMarshalling           = "MARSHALLING_ERROR"
	ErrCodeUnmarshalling         = "UNMARSHALLING_ERROR"
	ErrCodeValidationFailed      = "VALIDATION_FAILED"
)

// DomainError is a single failure with a stable code and field context.
type DomainError struct {
	Code    string
	Field   string
	Message string
	Cause   error
}

func (e *DomainError) Error() string {
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

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// NewDomainError creates a new domain error
func NewDomainError(code, field, message string, cause error) *DomainError {
	return &DomainError{Code: code, Field: field, Message: message, Cause: cause}
}

// Violation is one field-level validation failure inside an aggregate.
type Violation struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s [%s]: %s", v.Field, v.Code, v.Message)
}

// ValidationErrors aggregates every violation found in one pass so the
// caller can report all problems at once rather than one at a time.
type ValidationErrors struct {
	Violations []Violation
}

func (e *ValidationErrors) Error() string {
	if len(e.Violations) == 0 {
		return fmt.Sprintf("[%s] validation failed", ErrCodeValidationFailed)
	}
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("[%s] %d violation(s): %s", ErrCodeValidationFailed, len(e.Violations), strings.Join(parts, "; "))
}

// Add appends a violation.
func (e *ValidationErrors) Add(field, code, message string) {
	e.Violations = append(e.Violations, Violation{Field: field, Code: code, Message: message})
}

// Merge appends all violations from another aggregate.
func (e *ValidationErrors) Merge(other *ValidationErrors) {
	if other != nil {
		e.Violations = append(e.Violations, other.Violations...)
	}
}

// HasErrors reports whether any violation was collected.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.Violations) > 0
}

// AsError returns the aggregate as error, or nil when empty.
func (e *ValidationErrors) AsError() error {
	if e.HasErrors() {
		return e
	}
	return nil
}
