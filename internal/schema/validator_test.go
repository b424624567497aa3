package schema_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/schema"
	"github.com/tnvoice/elfatoora/internal/tax"
	"github.com/tnvoice/elfatoora/internal/teif"
)

func builtDocument(t *testing.T) []byte {
	t.Helper()
	inv := &model.Invoice{
		Number:    "FA-2025-100",
		Type:      model.DocumentTypeInvoice,
		IssueDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Supplier: model.Party{
			TaxID:  "0736202XAM000",
			IDType: model.IDTypeMatricule,
			Name:   "Société Exemple SARL",
			Address: model.Address{
				City:       "Tunis",
				PostalCode: "1002",
				Country:    "TN",
			},
		},
		Customer: model.Party{
			TaxID:  "12345678",
			IDType: model.IDTypeCIN,
			Name:   "Ali Ben Salah",
		},
		Lines: []model.InvoiceLine{
			{Number: 1, Description: "Prestation", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100), TaxRate: model.VATRate19},
		},
	}
	totals, err := tax.Compute(inv)
	require.NoError(t, err)
	out, err := teif.NewBuilder().Build(inv, totals)
	require.NoError(t, err)
	return out
}

func TestSuite_ValidDocument(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	violations, err := suite.Validate(builtDocument(t), schema.Unsigned)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestSuite_MissingPartnerIdentifier(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(builtDocument(t)))
	id := doc.FindElement("//PartnerSection/PartnerDetails/Nad/PartnerIdentifier")
	require.NotNil(t, id)
	id.Parent().RemoveChild(id)
	data, err := doc.WriteToBytes()
	require.NoError(t, err)

	violations, verr := suite.Validate(data, schema.Unsigned)
	require.NoError(t, verr)
	require.Len(t, violations, 1)
	assert.Equal(t, schema.RuleMissingElement, violations[0].Rule)
	assert.Contains(t, violations[0].Location, "PartnerIdentifier")
}

func TestSuite_BadAmountFormat(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(builtDocument(t)))
	amount := doc.FindElement("//InvoiceMoa/AmountDetails/Moa/Amount")
	require.NotNil(t, amount)
	amount.SetText("200.00") // two decimals instead of three

	data, err := doc.WriteToBytes()
	require.NoError(t, err)

	violations, verr := suite.Validate(data, schema.Unsigned)
	require.NoError(t, verr)
	require.Len(t, violations, 1)
	assert.Equal(t, schema.RulePatternMismatch, violations[0].Rule)
}

func TestSuite_MissingRootAttribute(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(builtDocument(t)))
	doc.Root().RemoveAttr("controlingAgency")
	data, err := doc.WriteToBytes()
	require.NoError(t, err)

	violations, verr := suite.Validate(data, schema.Unsigned)
	require.NoError(t, verr)
	require.Len(t, violations, 1)
	assert.Equal(t, schema.RuleMissingAttribute, violations[0].Rule)
}

func TestSuite_SignedVariant(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	unsigned := builtDocument(t)

	// The unsigned document lacks the Signature element required by
	// the signed schema.
	violations, verr := suite.Validate(unsigned, schema.Signed)
	require.NoError(t, verr)
	require.Len(t, violations, 1)
	assert.Equal(t, schema.RuleMissingElement, violations[0].Rule)
	assert.Contains(t, violations[0].Location, "Signature")

	// Appending a signature satisfies the signed schema and breaks
	// the unsigned one.
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(unsigned))
	sig := doc.Root().CreateElement("ds:Signature")
	sig.CreateElement("ds:SignedInfo")
	signed, err := doc.WriteToBytes()
	require.NoError(t, err)

	violations, verr = suite.Validate(signed, schema.Signed)
	require.NoError(t, verr)
	assert.Empty(t, violations)

	violations, verr = suite.Validate(signed, schema.Unsigned)
	require.NoError(t, verr)
	require.Len(t, violations, 1)
	assert.Equal(t, schema.RuleUnexpectedElement, violations[0].Rule)
}

func TestSuite_WrongRoot(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	violations, verr := suite.Validate([]byte("<Invoice/>"), schema.Unsigned)
	require.NoError(t, verr)
	require.Len(t, violations, 1)
	assert.Equal(t, schema.RuleWrongRoot, violations[0].Rule)
}

func TestSuite_MalformedXML(t *testing.T) {
	suite, err := schema.LoadEmbedded()
	require.NoError(t, err)

	_, verr := suite.Validate([]byte("<TEIF"), schema.Unsigned)
	require.Error(t, verr)
}
