// Package pipeline orchestrates invoice processing end to end:
// business validation, tax computation, TEIF serialization, XAdES
// signing, and schema validation, with each stage logged and the first
// failure stopping the run.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tnvoice/elfatoora/internal/config"
	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/schema"
	"github.com/tnvoice/elfatoora/internal/signature"
	"github.com/tnvoice/elfatoora/internal/signature/trust"
	"github.com/tnvoice/elfatoora/internal/signature/xades"
	"github.com/tnvoice/elfatoora/internal/tax"
	"github.com/tnvoice/elfatoora/internal/teif"
)

// Stage identifies how far a generation run progressed.
type Stage string

const (
	StageReceived        Stage = "received"
	StageValidated       Stage = "validated"
	StageTotalsComputed  Stage = "totals_computed"
	StageXMLBuilt        Stage = "xml_built"
	StageSigned          Stage = "signed"
	StageSchemaValidated Stage = "schema_validated"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// Result is the outcome of a generation run.
type Result struct {
	XML           []byte
	InvoiceNumber string
	Signed        bool
	SignedAt      *time.Time
	Totals        *tax.Totals
	Stage         Stage
	Warnings      []string
}

// Document converts the result to the transferable document form.
func (r *Result) Document() *model.SignedDocument {
	doc := &model.SignedDocument{
		XML:           r.XML,
		InvoiceNumber: r.InvoiceNumber,
		Signed:        r.Signed,
	}
	if r.SignedAt != nil {
		doc.SignedAt = *r.SignedAt
	}
	return doc
}

// Pipeline wires the processing stages together. A pipeline without a
// signing key can still generate unsigned documents, validate, verify
// and parse; Generate then fails with a certificate error.
type Pipeline struct {
	cfg      *config.Config
	builder  *teif.Builder
	parser   *teif.Parser
	schemas  *schema.Suite
	key      *signature.SigningKey
	signer   *xades.Signer
	verifier *xades.Verifier
	log      zerolog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger. Defaults to a disabled logger.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithSigningKey enables signing with an already-loaded key.
func WithSigningKey(key *signature.SigningKey) Option {
	return func(p *Pipeline) { p.key = key }
}

// New builds a pipeline from configuration. The signing key, when one
// is configured or injected, is validated eagerly so a broken keystore
// surfaces at startup rather than on the first invoice.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	p := &Pipeline{
		cfg:     cfg,
		builder: teif.NewBuilder(),
		parser:  teif.NewParser(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	suite, err := schema.Load(cfg.Schema.UnsignedXSDPath, cfg.Schema.SignedXSDPath)
	if err != nil {
		return nil, err
	}
	p.schemas = suite

	if p.key == nil && cfg.Certificate.Path != "" {
		key, err := signature.LoadPKCS12(cfg.Certificate.Path, cfg.Certificate.Password, cfg.Certificate.Alias)
		if err != nil {
			if cfg.Certificate.Required {
				return nil, err
			}
			p.log.Warn().Err(err).Msg("keystore unavailable, signing disabled")
		} else {
			p.key = key
		}
	}
	if p.key == nil && cfg.Certificate.Required {
		return nil, signature.ErrCertificate("signing certificate required but not configured", nil)
	}

	if p.key != nil {
		signer, err := xades.NewSigner(p.key, cfg.Signature, cfg.Policy)
		if err != nil {
			return nil, err
		}
		p.signer = signer
	}

	var verifierOpts []xades.VerifierOption
	if cfg.TrustedCAFile != "" {
		store, err := trust.NewStore(trust.WithRootsFromFile(cfg.TrustedCAFile))
		if err != nil {
			return nil, err
		}
		verifierOpts = append(verifierOpts, xades.WithTrustStore(store))
	}
	p.verifier = xades.NewVerifier(cfg.Policy, verifierOpts...)

	return p, nil
}

// CanSign reports whether the pipeline holds a signing key.
func (p *Pipeline) CanSign() bool {
	return p.signer != nil
}

// Generate runs the full pipeline and returns a signed document.
func (p *Pipeline) Generate(ctx context.Context, inv *model.Invoice) (*Result, error) {
	if p.signer == nil {
		return &Result{Stage: StageFailed}, signature.ErrCertificate("signing is not configured", nil)
	}
	return p.run(ctx, inv, true)
}

// GenerateUnsigned runs the pipeline without the signing stage. The
// output is deterministic: equal invoices yield identical bytes.
func (p *Pipeline) GenerateUnsigned(ctx context.Context, inv *model.Invoice) (*Result, error) {
	return p.run(ctx, inv, false)
}

func (p *Pipeline) run(ctx context.Context, inv *model.Invoice, sign bool) (*Result, error) {
	result := &Result{Stage: StageReceived}
	if inv != nil {
		result.InvoiceNumber = inv.Number
	}
	log := p.log.With().Str("invoice", result.InvoiceNumber).Logger()

	if err := ctx.Err(); err != nil {
		result.Stage = StageFailed
		return result, err
	}
	if inv == nil {
		result.Stage = StageFailed
		return result, model.NewDomainError(model.ErrCodeMissingRequiredField, "invoice", "invoice is required", nil)
	}

	if verrs := inv.Validate(); verrs.HasErrors() {
		result.Stage = StageFailed
		log.Warn().Int("violations", len(verrs.Violations)).Msg("invoice rejected by business validation")
		return result, verrs.AsError()
	}
	result.Stage = StageValidated

	totals, err := tax.Compute(inv)
	if err != nil {
		result.Stage = StageFailed
		return result, err
	}
	result.Totals = totals
	result.Stage = StageTotalsComputed

	if inv.TotalInWords != "" && !tax.MatchesTotalInWords(inv.TotalInWords, totals.Payable) {
		w := fmt.Sprintf("total in words %q does not match computed payable amount %s",
			inv.TotalInWords, totals.Payable.StringFixed(3))
		result.Warnings = append(result.Warnings, w)
		log.Warn().Msg(w)
	}

	xml, err := p.builder.Build(inv, totals)
	if err != nil {
		result.Stage = StageFailed
		return result, err
	}
	result.XML = xml
	result.Stage = StageXMLBuilt

	variant := schema.Unsigned
	if sign {
		signed, signedAt, err := p.signer.Sign(xml)
		if err != nil {
			result.Stage = StageFailed
			return result, err
		}
		result.XML = signed
		result.Signed = true
		result.SignedAt = &signedAt
		result.Stage = StageSigned
		variant = schema.Signed
	}

	if p.cfg.Schema.ValidationEnabled {
		violations, err := p.schemas.Validate(result.XML, variant)
		if err != nil {
			result.Stage = StageFailed
			return result, err
		}
		if len(violations) > 0 {
			result.Stage = StageFailed
			return result, schemaError(violations)
		}
		result.Stage = StageSchemaValidated
	}

	result.Stage = StageDone
	log.Info().Bool("signed", result.Signed).Msg("invoice generated")
	return result, nil
}

// Validate runs business validation only and returns all violations.
func (p *Pipeline) Validate(inv *model.Invoice) *model.ValidationErrors {
	return inv.Validate()
}

// ValidateXML checks raw TEIF bytes against the schema variant.
func (p *Pipeline) ValidateXML(data []byte, variant schema.Variant) ([]schema.Violation, error) {
	return p.schemas.Validate(data, variant)
}

// VerifySignature verifies a signed document.
func (p *Pipeline) VerifySignature(data []byte) (*signature.VerificationResult, error) {
	return p.verifier.Verify(data)
}

// Parse reconstructs an invoice from TEIF bytes. Signed documents
// parse the same as unsigned ones; the signature element is ignored.
func (p *Pipeline) Parse(ctx context.Context, data []byte) (*model.Invoice, error) {
	return p.parser.ParseBytes(ctx, data)
}

// CertificateInfo describes the loaded signing certificate.
func (p *Pipeline) CertificateInfo() (*signature.CertificateInfo, error) {
	if p.key == nil {
		return nil, signature.ErrCertificate("no signing certificate loaded", nil)
	}
	info := p.key.Info()
	return &info, nil
}

// Close releases the signing key.
func (p *Pipeline) Close() error {
	if p.key != nil {
		p.key.Close()
	}
	return nil
}

func schemaError(violations []schema.Violation) error {
	verrs := &model.ValidationErrors{}
	for _, v := range violations {
		verrs.Add(v.Location, model.ErrCodeSchemaValidation, v.Message)
	}
	return verrs.AsError()
}
