package fatooralib_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnvoice/elfatoora/pkg/fatooralib"
)

func testInvoice() *fatooralib.Invoice {
	return &fatooralib.Invoice{
		Number:    "FAC-2025-0100",
		Type:      fatooralib.DocumentTypeInvoice,
		IssueDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Supplier: fatooralib.Party{
			TaxID:  "0736202XAM000",
			IDType: fatooralib.IDTypeMatricule,
			Name:   "Société Fournisseur SARL",
			Address: fatooralib.Address{
				City:       "Tunis",
				PostalCode: "1001",
				Country:    "TN",
			},
		},
		Customer: fatooralib.Party{
			TaxID:  "12345678",
			IDType: fatooralib.IDTypeCIN,
			Name:   "Client Particulier",
			Address: fatooralib.Address{
				City:       "Sousse",
				PostalCode: "4000",
				Country:    "TN",
			},
		},
		Lines: []fatooralib.InvoiceLine{
			{
				Number:      1,
				Description: "Abonnement annuel",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.RequireFromString("250.000"),
				TaxRate:     fatooralib.VATRate19,
			},
		},
		Currency: "TND",
	}
}

func TestProcessorLifecycle(t *testing.T) {
	proc, err := fatooralib.NewDefaultProcessor()
	require.NoError(t, err)
	defer proc.Close()

	assert.False(t, proc.CanSign())

	doc, err := proc.GenerateUnsigned(context.Background(), testInvoice())
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0100", doc.InvoiceNumber)
	assert.False(t, doc.Signed)
	assert.NotEmpty(t, doc.XML)

	violations, err := proc.ValidateXML(doc.XML)
	require.NoError(t, err)
	assert.Empty(t, violations)

	parsed, err := proc.Parse(context.Background(), doc.XML)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2025-0100", parsed.Number)
	require.Len(t, parsed.Lines, 1)
	assert.Equal(t, fatooralib.VATRate19, parsed.Lines[0].TaxRate)
}

func TestProcessorValidate(t *testing.T) {
	proc, err := fatooralib.NewDefaultProcessor()
	require.NoError(t, err)
	defer proc.Close()

	assert.Empty(t, proc.Validate(testInvoice()))

	bad := testInvoice()
	bad.Lines = nil
	violations := proc.Validate(bad)
	require.NotEmpty(t, violations)
	assert.Equal(t, "lines", violations[0].Field)
}

func TestProcessorVerify_Unsigned(t *testing.T) {
	proc, err := fatooralib.NewDefaultProcessor()
	require.NoError(t, err)
	defer proc.Close()

	doc, err := proc.GenerateUnsigned(context.Background(), testInvoice())
	require.NoError(t, err)

	result, err := proc.Verify(doc.XML)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.False(t, result.Valid)
	assert.False(t, result.SignatureFound)
}

func TestNewProcessor_MissingKeystore(t *testing.T) {
	_, err := fatooralib.NewProcessor(fatooralib.Options{
		KeystorePath:     "testdata/does-not-exist.p12",
		KeystorePassword: "secret",
	})
	require.Error(t, err)
}
