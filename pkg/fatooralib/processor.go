package fatooralib

import (
	"context"

	"github.com/tnvoice/elfatoora/internal/config"
	"github.com/tnvoice/elfatoora/internal/pipeline"
	"github.com/tnvoice/elfatoora/internal/schema"
	"github.com/tnvoice/elfatoora/internal/signature"
)

// Options configures a Processor. The zero value gives an
// unsigned-only processor with schema validation enabled.
type Options struct {
	// KeystorePath is a PKCS#12 keystore holding the signing key.
	// Leave empty for an unsigned-only processor.
	KeystorePath     string
	KeystorePassword string
	KeystoreAlias    string

	// TrustedCAFile enables certificate chain checks during
	// verification, PEM format.
	TrustedCAFile string

	// SkipSchemaValidation turns off schema validation of generated
	// documents.
	SkipSchemaValidation bool
}

// VerificationResult is the outcome of a signature verification.
type VerificationResult = signature.VerificationResult

// CertificateInfo describes a signing certificate.
type CertificateInfo = signature.CertificateInfo

// SchemaViolation is one schema validation finding.
type SchemaViolation = schema.Violation

// Processor is the high-level entry point covering the full document
// lifecycle. Safe for concurrent use.
type Processor struct {
	pipeline *pipeline.Pipeline
}

// NewProcessor creates a processor from options.
func NewProcessor(opts Options) (*Processor, error) {
	cfg := config.Default()
	cfg.Certificate.Path = opts.KeystorePath
	cfg.Certificate.Password = opts.KeystorePassword
	cfg.Certificate.Alias = opts.KeystoreAlias
	cfg.Certificate.Required = opts.KeystorePath != ""
	cfg.TrustedCAFile = opts.TrustedCAFile
	cfg.Schema.ValidationEnabled = !opts.SkipSchemaValidation

	pipe, err := pipeline.New(&cfg)
	if err != nil {
		return nil, err
	}
	return &Processor{pipeline: pipe}, nil
}

// NewDefaultProcessor creates an unsigned-only processor.
func NewDefaultProcessor() (*Processor, error) {
	return NewProcessor(Options{})
}

// Generate produces a signed TEIF document.
func (p *Processor) Generate(ctx context.Context, inv *Invoice) (*SignedDocument, error) {
	result, err := p.pipeline.Generate(ctx, inv)
	if err != nil {
		return nil, err
	}
	return result.Document(), nil
}

// GenerateUnsigned produces an unsigned TEIF document. Output is
// deterministic: equal invoices yield identical bytes.
func (p *Processor) GenerateUnsigned(ctx context.Context, inv *Invoice) (*SignedDocument, error) {
	result, err := p.pipeline.GenerateUnsigned(ctx, inv)
	if err != nil {
		return nil, err
	}
	return result.Document(), nil
}

// Validate runs business validation and returns all violations found.
func (p *Processor) Validate(inv *Invoice) []Violation {
	verrs := p.pipeline.Validate(inv)
	return verrs.Violations
}

// ValidateXML checks TEIF bytes against the unsigned schema.
func (p *Processor) ValidateXML(data []byte) ([]SchemaViolation, error) {
	return p.pipeline.ValidateXML(data, schema.Unsigned)
}

// ValidateSignedXML checks TEIF bytes against the signed schema.
func (p *Processor) ValidateSignedXML(data []byte) ([]SchemaViolation, error) {
	return p.pipeline.ValidateXML(data, schema.Signed)
}

// Verify checks the signature of a signed document. The result is
// non-nil even when verification fails; the error reports documents
// that could not be examined at all.
func (p *Processor) Verify(data []byte) (*VerificationResult, error) {
	return p.pipeline.VerifySignature(data)
}

// Parse reconstructs an invoice from TEIF bytes.
func (p *Processor) Parse(ctx context.Context, data []byte) (*Invoice, error) {
	return p.pipeline.Parse(ctx, data)
}

// CertificateInfo describes the loaded signing certificate.
func (p *Processor) CertificateInfo() (*CertificateInfo, error) {
	return p.pipeline.CertificateInfo()
}

// CanSign reports whether a signing key is loaded.
func (p *Processor) CanSign() bool {
	return p.pipeline.CanSign()
}

// Close releases the signing key. The processor must not be used
// after Close.
func (p *Processor) Close() error {
	return p.pipeline.Close()
}
