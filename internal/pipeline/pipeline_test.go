package pipeline_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnvoice/elfatoora/internal/decimal"
	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/pipeline"
	"github.com/tnvoice/elfatoora/internal/schema"
	"github.com/tnvoice/elfatoora/internal/signature"
)

func testInvoice() *model.Invoice {
	return &model.Invoice{
		Number:    "FAC-2025-0042",
		Type:      model.DocumentTypeInvoice,
		IssueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		Supplier: model.Party{
			TaxID:  "0736202XAM000",
			IDType: model.IDTypeMatricule,
			Name:   "Société Fournisseur SARL",
			Address: model.Address{
				Street:     "12 Avenue Habib Bourguiba",
				City:       "Tunis",
				PostalCode: "1001",
				Country:    "TN",
			},
		},
		Customer: model.Party{
			TaxID:  "12345678",
			IDType: model.IDTypeCIN,
			Name:   "Client Particulier",
			Address: model.Address{
				City:       "Sfax",
				PostalCode: "3000",
				Country:    "TN",
			},
		},
		Lines: []model.InvoiceLine{
			{
				Number:      1,
				Description: "Prestation de conseil",
				Unit:        "UNIT",
				Quantity:    decimal.FromInt(10),
				UnitPrice:   decimal.MustFromString("100.000"),
				TaxRate:     model.VATRate19,
			},
		},
		Currency: model.CurrencyTND,
	}
}

func testSigningKey(t *testing.T) *signature.SigningKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(9876),
		Subject: pkix.Name{
			CommonName:   "Société Fournisseur SARL",
			Organization: []string{"Société Fournisseur"},
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

	return signature.NewSigningKey(key, cert, "sig-key")
}

func TestGenerateUnsigned(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	result, err := pipe.GenerateUnsigned(context.Background(), testInvoice())
	require.NoError(t, err)

	assert.Equal(t, pipeline.StageDone, result.Stage)
	assert.False(t, result.Signed)
	assert.Nil(t, result.SignedAt)
	assert.Equal(t, "FAC-2025-0042", result.InvoiceNumber)
	assert.NotEmpty(t, result.XML)
	require.NotNil(t, result.Totals)
	assert.Equal(t, "1190.000", result.Totals.Payable.StringFixed(3))

	// Equal invoices yield identical bytes.
	again, err := pipe.GenerateUnsigned(context.Background(), testInvoice())
	require.NoError(t, err)
	assert.Equal(t, result.XML, again.XML)
}

func TestGenerate_NoSigningKey(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	_, err = pipe.Generate(context.Background(), testInvoice())
	require.Error(t, err)
	var sigErr *signature.Error
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, signature.ErrCodeCertificate, sigErr.Code)
}

func TestGenerate_SignAndVerify(t *testing.T) {
	pipe, err := pipeline.New(nil, pipeline.WithSigningKey(testSigningKey(t)))
	require.NoError(t, err)
	defer pipe.Close()

	require.True(t, pipe.CanSign())

	result, err := pipe.Generate(context.Background(), testInvoice())
	require.NoError(t, err)

	assert.Equal(t, pipeline.StageDone, result.Stage)
	assert.True(t, result.Signed)
	require.NotNil(t, result.SignedAt)

	verification, err := pipe.VerifySignature(result.XML)
	require.NoError(t, err)
	assert.True(t, verification.Valid, "freshly signed document must verify: %v", verification.Errors)
	assert.True(t, verification.DigestValid)
	assert.True(t, verification.SignatureValid)
	assert.True(t, verification.PolicyValid)

	doc := result.Document()
	assert.True(t, doc.Signed)
	assert.Equal(t, *result.SignedAt, doc.SignedAt)
}

func TestGenerate_InvalidInvoice(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	inv := testInvoice()
	inv.Number = ""
	inv.Currency = "EUR"

	result, err := pipe.GenerateUnsigned(context.Background(), inv)
	require.Error(t, err)
	assert.Equal(t, pipeline.StageFailed, result.Stage)

	var verrs *model.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.GreaterOrEqual(t, len(verrs.Violations), 2)
}

func TestGenerate_NilInvoice(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	_, err = pipe.GenerateUnsigned(context.Background(), nil)
	require.Error(t, err)
	var derr *model.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, model.ErrCodeMissingRequiredField, derr.Code)
}

func TestGenerate_CancelledContext(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := pipe.GenerateUnsigned(ctx, testInvoice())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, pipeline.StageFailed, result.Stage)
}

func TestGenerate_TotalInWordsMismatch(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	inv := testInvoice()
	inv.TotalInWords = "deux mille dinars, zéro millime"

	result, err := pipe.GenerateUnsigned(context.Background(), inv)
	require.NoError(t, err, "a wrong spelled-out total must not fail the run")
	assert.Equal(t, pipeline.StageDone, result.Stage)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "does not match")
}

func TestParseRoundTrip(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	result, err := pipe.GenerateUnsigned(context.Background(), testInvoice())
	require.NoError(t, err)

	parsed, err := pipe.Parse(context.Background(), result.XML)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0042", parsed.Number)
	assert.Equal(t, model.DocumentTypeInvoice, parsed.Type)
	require.Len(t, parsed.Lines, 1)
	assert.Equal(t, model.VATRate19, parsed.Lines[0].TaxRate)
}

func TestValidateXML(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	result, err := pipe.GenerateUnsigned(context.Background(), testInvoice())
	require.NoError(t, err)

	violations, err := pipe.ValidateXML(result.XML, schema.Unsigned)
	require.NoError(t, err)
	assert.Empty(t, violations)

	// Unsigned output lacks the Signature element the signed variant requires.
	violations, err = pipe.ValidateXML(result.XML, schema.Signed)
	require.NoError(t, err)
	assert.NotEmpty(t, violations)
}

func TestCertificateInfo(t *testing.T) {
	pipe, err := pipeline.New(nil)
	require.NoError(t, err)
	defer pipe.Close()

	_, err = pipe.CertificateInfo()
	require.Error(t, err)

	signed, err := pipeline.New(nil, pipeline.WithSigningKey(testSigningKey(t)))
	require.NoError(t, err)
	defer signed.Close()

	info, err := signed.CertificateInfo()
	require.NoError(t, err)
	assert.Contains(t, info.Subject, "Société Fournisseur SARL")
	assert.Equal(t, "sig-key", info.Alias)
}
