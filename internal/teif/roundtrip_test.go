package teif_test

import (
	"context"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/tax"
	"github.com/tnvoice/elfatoora/internal/teif"
)

func testInvoice() *model.Invoice {
	return &model.Invoice{
		Number:    "FA-2025-042",
		Type:      model.DocumentTypeInvoice,
		IssueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:   time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC),
		Supplier: model.Party{
			TaxID:              "0736202XAM000",
			IDType:             model.IDTypeMatricule,
			Name:               "Société Exemple SARL",
			RegistrationNumber: "B0123452013",
			LegalForm:          "SARL",
			Address: model.Address{
				Street:     "12 Avenue Habib Bourguiba",
				City:       "Tunis",
				PostalCode: "1002",
				Country:    "TN",
			},
			Phone: "+216 71 123 456",
			Email: "contact@exemple.tn",
		},
		Customer: model.Party{
			TaxID:  "12345678",
			IDType: model.IDTypeCIN,
			Name:   "Ali Ben Salah",
			Address: model.Address{
				City:       "Sfax",
				PostalCode: "3000",
				Country:    "TN",
			},
		},
		Lines: []model.InvoiceLine{
			{
				Number:      1,
				ItemCode:    "SRV-001",
				Description: "Prestation de conseil",
				Unit:        "DAY",
				Quantity:    decimal.NewFromInt(10),
				UnitPrice:   decimal.NewFromInt(50),
				TaxRate:     model.VATRate19,
			},
			{
				Number:      2,
				Description: "Fournitures",
				Quantity:    decimal.NewFromInt(5),
				UnitPrice:   decimal.NewFromInt(100),
				TaxRate:     model.VATRate13,
			},
		},
		PaymentTerms: []model.PaymentTerms{
			{
				Method: model.PaymentMethodBankTransfer,
				Bank:   &model.BankAccount{RIB: "08139000123456789012", BankName: "BIAT", Branch: "Tunis Lac"},
			},
		},
		StampDuty:    decimal.RequireFromString("1.000"),
		TotalInWords: "mille cent soixante et un dinars, zéro millime",
	}
}

func buildBytes(t *testing.T, inv *model.Invoice) []byte {
	t.Helper()
	totals, err := tax.Compute(inv)
	require.NoError(t, err)
	out, err := teif.NewBuilder().Build(inv, totals)
	require.NoError(t, err)
	return out
}

func TestBuild_Deterministic(t *testing.T) {
	first := buildBytes(t, testInvoice())
	second := buildBytes(t, testInvoice())
	assert.Equal(t, first, second, "equal invoices must produce identical bytes")
}

func TestBuild_Structure(t *testing.T) {
	out := buildBytes(t, testInvoice())

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))

	root := doc.Root()
	require.Equal(t, "TEIF", root.Tag)
	assert.Equal(t, "1.8.8", root.SelectAttrValue("version", ""))
	assert.Equal(t, "TTN", root.SelectAttrValue("controlingAgency", ""))

	sender := doc.FindElement("//InvoiceHeader/MessageSenderIdentifier")
	require.NotNil(t, sender)
	assert.Equal(t, "0736202XAM000", sender.Text())
	assert.Equal(t, "I-01", sender.SelectAttrValue("type", ""))

	issue := doc.FindElement("//Dtm/DateText[@functionCode='I-31']")
	require.NotNil(t, issue)
	assert.Equal(t, "100325", issue.Text())
	assert.Equal(t, "ddMMyy", issue.SelectAttrValue("format", ""))

	partners := doc.FindElements("//PartnerSection/PartnerDetails")
	require.Len(t, partners, 2)
	assert.Equal(t, "I-62", partners[0].SelectAttrValue("functionCode", ""))
	assert.Equal(t, "I-64", partners[1].SelectAttrValue("functionCode", ""))

	lines := doc.FindElements("//LinSection/Lin")
	require.Len(t, lines, 2)
	assert.Equal(t, "1", lines[0].SelectAttrValue("lineNumber", ""))

	// Amounts carry three decimals and the I-18x codes.
	payable := doc.FindElement("//InvoiceMoa/AmountDetails/Moa[@amountTypeCode='I-183']/Amount")
	require.NotNil(t, payable)
	assert.Equal(t, "1161.000", payable.Text())
	assert.Equal(t, "TND", payable.SelectAttrValue("currencyIdentifier", ""))

	duty := doc.FindElement("//InvoiceMoa/AmountDetails/Moa[@amountTypeCode='I-182']/Amount")
	require.NotNil(t, duty)
	assert.Equal(t, "1.000", duty.Text())

	// One tax group per distinct rate.
	taxGroups := doc.FindElements("//InvoiceTax/InvoiceTaxDetails")
	assert.Len(t, taxGroups, 2)
}

func TestRoundTrip(t *testing.T) {
	original := testInvoice()
	out := buildBytes(t, original)

	parsed, err := teif.NewParser().ParseBytes(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, original.Number, parsed.Number)
	assert.Equal(t, original.Type, parsed.Type)
	assert.True(t, original.IssueDate.Equal(parsed.IssueDate))
	assert.True(t, original.DueDate.Equal(parsed.DueDate))
	assert.Equal(t, original.Supplier.TaxID, parsed.Supplier.TaxID)
	assert.Equal(t, original.Supplier.IDType, parsed.Supplier.IDType)
	assert.Equal(t, original.Supplier.Name, parsed.Supplier.Name)
	assert.Equal(t, original.Supplier.Address.PostalCode, parsed.Supplier.Address.PostalCode)
	assert.Equal(t, original.Supplier.Address.Country, parsed.Supplier.Address.Country)
	assert.Equal(t, original.Supplier.Phone, parsed.Supplier.Phone)
	assert.Equal(t, original.Supplier.Email, parsed.Supplier.Email)
	assert.Equal(t, original.Customer.TaxID, parsed.Customer.TaxID)
	assert.Equal(t, original.Customer.IDType, parsed.Customer.IDType)

	require.Len(t, parsed.Lines, len(original.Lines))
	for i := range original.Lines {
		assert.Equal(t, original.Lines[i].Number, parsed.Lines[i].Number)
		assert.Equal(t, original.Lines[i].Description, parsed.Lines[i].Description)
		assert.Equal(t, original.Lines[i].TaxRate, parsed.Lines[i].TaxRate)
		assert.True(t, original.Lines[i].Quantity.Equal(parsed.Lines[i].Quantity),
			"line %d quantity: %s != %s", i, original.Lines[i].Quantity, parsed.Lines[i].Quantity)
		assert.True(t, original.Lines[i].UnitPrice.Equal(parsed.Lines[i].UnitPrice),
			"line %d unit price: %s != %s", i, original.Lines[i].UnitPrice, parsed.Lines[i].UnitPrice)
	}

	require.Len(t, parsed.PaymentTerms, 1)
	assert.Equal(t, model.PaymentMethodBankTransfer, parsed.PaymentTerms[0].Method)
	require.NotNil(t, parsed.PaymentTerms[0].Bank)
	assert.Equal(t, "08139000123456789012", parsed.PaymentTerms[0].Bank.RIB)

	assert.True(t, original.StampDuty.Equal(parsed.StampDuty))
	assert.Equal(t, original.TotalInWords, parsed.TotalInWords)

	// The reconstructed invoice passes validation again.
	assert.False(t, parsed.Validate().HasErrors())
}

func TestParse_RejectsNonTEIF(t *testing.T) {
	parser := teif.NewParser()

	_, err := parser.ParseBytes(context.Background(), []byte("<Invoice><No>1</No></Invoice>"))
	require.Error(t, err)
	var derr *model.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, model.ErrCodeInvalidXMLStructure, derr.Code)

	_, err = parser.ParseBytes(context.Background(), []byte("not xml at all"))
	require.Error(t, err)
}

func TestCanParse(t *testing.T) {
	parser := teif.NewParser()
	assert.True(t, parser.CanParse([]byte(`<TEIF version="1.8.8"></TEIF>`)))
	assert.False(t, parser.CanParse([]byte(`<Invoice/>`)))
	assert.False(t, parser.CanParse([]byte(`plain text`)))
}
