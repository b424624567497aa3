package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnvoice/elfatoora/internal/model"
)

func TestCheckTaxID_Matricule(t *testing.T) {
	tests := []struct {
		name  string
		value string
		valid bool
	}{
		{"valid company matricule", "0736202XAM000", true},
		{"valid with different letters", "1234567ZBC001", true},
		{"too short", "073620XAM000", false},
		{"too long", "0736202XAM0000", false},
		{"control letter I", "0736202IAM000", false},
		{"control letter O", "0736202OAM000", false},
		{"bad VAT regime letter", "0736202XZM000", false},
		{"bad category letter", "0736202XAZ000", false},
		{"letters in digit prefix", "07A6202XAM000", false},
		{"letters in establishment number", "0736202XAM0A0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, model.ValidTaxID(model.IDTypeMatricule, tt.value))
		})
	}
}

func TestCheckTaxID_OtherTypes(t *testing.T) {
	tests := []struct {
		name   string
		idType model.IDType
		value  string
		valid  bool
	}{
		{"valid CIN", model.IDTypeCIN, "12345678", true},
		{"short CIN", model.IDTypeCIN, "1234567", false},
		{"CIN with letter", model.IDTypeCIN, "1234567A", false},
		{"valid carte de sejour", model.IDTypeCarteSejour, "123456789", true},
		{"short carte de sejour", model.IDTypeCarteSejour, "12345678", false},
		{"other within limit", model.IDTypeOther, "FR-12345", true},
		{"other too long", model.IDTypeOther, "123456789012345678901234567890123456", false},
		{"unknown type", model.IDType("I-99"), "12345678", false},
		{"empty value is not checked", model.IDTypeCIN, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, model.ValidTaxID(tt.idType, tt.value))
		})
	}
}

func TestCheckVATRate(t *testing.T) {
	for _, rate := range []model.VATRate{0, 7, 13, 19} {
		assert.NoError(t, model.CheckVATRate(rate), "rate %d", rate)
	}
	for _, rate := range []model.VATRate{20, 5, -1, 18} {
		assert.Error(t, model.CheckVATRate(rate), "rate %d", rate)
	}
}

func TestCheckPostalCode(t *testing.T) {
	assert.NoError(t, model.CheckPostalCode("1002"))
	assert.NoError(t, model.CheckPostalCode(""))
	assert.Error(t, model.CheckPostalCode("100"))
	assert.Error(t, model.CheckPostalCode("10023"))
	assert.Error(t, model.CheckPostalCode("10A2"))
}

func TestCheckCountryCode(t *testing.T) {
	assert.NoError(t, model.CheckCountryCode("TN"))
	assert.NoError(t, model.CheckCountryCode("tn"))
	assert.NoError(t, model.CheckCountryCode("FR"))
	assert.NoError(t, model.CheckCountryCode(""))
	assert.Error(t, model.CheckCountryCode("TUN"))

	// An unknown code is a validation failure, not a missing value.
	var derr *model.DomainError
	require.ErrorAs(t, model.CheckCountryCode("XX"), &derr)
	assert.Equal(t, model.ErrCodeValidationFailed, derr.Code)
	assert.Equal(t, "country", derr.Field)
}

func TestCheckDocumentType(t *testing.T) {
	for _, code := range []model.DocumentType{"I-11", "I-12", "I-13", "I-14", "I-15", "I-16"} {
		assert.NoError(t, model.CheckDocumentType(code), "code %s", code)
	}
	assert.Error(t, model.CheckDocumentType("I-17"))
	assert.Error(t, model.CheckDocumentType("invoice"))
}

func testInvoice() *model.Invoice {
	return &model.Invoice{
		Number:    "FA-2025-001",
		Type:      model.DocumentTypeInvoice,
		IssueDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		Supplier: model.Party{
			TaxID:  "0736202XAM000",
			IDType: model.IDTypeMatricule,
			Name:   "Société Exemple SARL",
			Address: model.Address{
				Street:     "12 Avenue Habib Bourguiba",
				City:       "Tunis",
				PostalCode: "1002",
				Country:    "TN",
			},
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
				Description: "Prestation de conseil",
				Quantity:    decimal.NewFromInt(10),
				UnitPrice:   decimal.NewFromInt(50),
				TaxRate:     model.VATRate19,
			},
		},
	}
}

func TestInvoiceValidate_Valid(t *testing.T) {
	verrs := testInvoice().Validate()
	require.False(t, verrs.HasErrors(), "unexpected violations: %v", verrs.Violations)
}

func TestInvoiceValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Invoice)
		field  string
	}{
		{"missing number", func(inv *model.Invoice) { inv.Number = "" }, "number"},
		{"missing issue date", func(inv *model.Invoice) { inv.IssueDate = time.Time{} }, "issueDate"},
		{"due before issue", func(inv *model.Invoice) {
			inv.DueDate = inv.IssueDate.AddDate(0, 0, -1)
		}, "dueDate"},
		{"period start only", func(inv *model.Invoice) {
			inv.PeriodStart = inv.IssueDate
		}, "period"},
		{"foreign currency", func(inv *model.Invoice) { inv.Currency = "EUR" }, "currency"},
		{"missing supplier tax id", func(inv *model.Invoice) { inv.Supplier.TaxID = "" }, "supplier.taxId"},
		{"bad supplier matricule", func(inv *model.Invoice) { inv.Supplier.TaxID = "073620XAM000" }, "supplier.taxId"},
		{"no lines", func(inv *model.Invoice) { inv.Lines = nil }, "lines"},
		{"zero quantity", func(inv *model.Invoice) {
			inv.Lines[0].Quantity = decimal.Zero
		}, "lines[0].quantity"},
		{"bad rate", func(inv *model.Invoice) { inv.Lines[0].TaxRate = 20 }, "lines[0].taxRate"},
		{"negative stamp duty", func(inv *model.Invoice) {
			inv.StampDuty = decimal.NewFromInt(-1)
		}, "stampDuty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := testInvoice()
			tt.mutate(inv)
			verrs := inv.Validate()
			require.True(t, verrs.HasErrors())
			fields := make([]string, 0, len(verrs.Violations))
			for _, v := range verrs.Violations {
				fields = append(fields, v.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestInvoiceValidate_LineNumbering(t *testing.T) {
	inv := testInvoice()
	inv.Lines = append(inv.Lines, model.InvoiceLine{
		Number:      1, // duplicate
		Description: "Deuxième ligne",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(100),
		TaxRate:     model.VATRate13,
	})
	verrs := inv.Validate()
	require.True(t, verrs.HasErrors())
	assert.Equal(t, "lines[1].number", verrs.Violations[0].Field)
}

func TestInvoiceValidate_PaymentTerms(t *testing.T) {
	inv := testInvoice()
	inv.PaymentTerms = []model.PaymentTerms{
		{Method: model.PaymentMethodBankTransfer}, // no bank account
	}
	verrs := inv.Validate()
	require.True(t, verrs.HasErrors())
	assert.Equal(t, "paymentTerms[0].bank", verrs.Violations[0].Field)

	inv = testInvoice()
	inv.PaymentTerms = []model.PaymentTerms{
		{
			Method: model.PaymentMethodBankTransfer,
			Bank:   &model.BankAccount{RIB: "12345678901234567890", BankName: "BIAT"},
		},
	}
	require.False(t, inv.Validate().HasErrors())
}
