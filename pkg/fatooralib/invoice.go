// Package fatooralib provides a public API for generating, signing,
// verifying and parsing Tunisian TEIF electronic invoices.
//
// Example usage:
//
//	proc, err := fatooralib.NewProcessor(fatooralib.Options{
//	    KeystorePath:     "keystore.p12",
//	    KeystorePassword: "secret",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer proc.Close()
//
//	doc, err := proc.Generate(ctx, invoice)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invoice.xml", doc.XML, 0o644)
package fatooralib

import "github.com/tnvoice/elfatoora/internal/model"

// Re-export core types for public API
type (
	Invoice       = model.Invoice
	InvoiceLine   = model.InvoiceLine
	Party         = model.Party
	Address       = model.Address
	PaymentTerms  = model.PaymentTerms
	BankAccount   = model.BankAccount
	PostalAccount = model.PostalAccount

	DocumentType  = model.DocumentType
	IDType        = model.IDType
	VATRate       = model.VATRate
	PaymentMethod = model.PaymentMethod

	SignedDocument = model.SignedDocument
)

// Re-export document type codes
const (
	DocumentTypeInvoice           = model.DocumentTypeInvoice
	DocumentTypeCreditNote        = model.DocumentTypeCreditNote
	DocumentTypeDebitNote         = model.DocumentTypeDebitNote
	DocumentTypeSimplifiedInvoice = model.DocumentTypeSimplifiedInvoice
	DocumentTypeSelfBilling       = model.DocumentTypeSelfBilling
	DocumentTypeCorrectiveInvoice = model.DocumentTypeCorrectiveInvoice
)

// Re-export tax identifier types
const (
	IDTypeMatricule   = model.IDTypeMatricule
	IDTypeCIN         = model.IDTypeCIN
	IDTypeCarteSejour = model.IDTypeCarteSejour
	IDTypeOther       = model.IDTypeOther
)

// Re-export VAT rates
const (
	VATRate0  = model.VATRate0
	VATRate7  = model.VATRate7
	VATRate13 = model.VATRate13
	VATRate19 = model.VATRate19
)

// Re-export payment method codes
const (
	PaymentMethodBankTransfer   = model.PaymentMethodBankTransfer
	PaymentMethodPostalTransfer = model.PaymentMethodPostalTransfer
	PaymentMethodOther          = model.PaymentMethodOther
)

// Re-export error types
type (
	DomainError      = model.DomainError
	Violation        = model.Violation
	ValidationErrors = model.ValidationErrors
)
