package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is the domain representation of a TEIF electronic invoice.
// Instances are built once from caller data, validated, and never
// mutated afterwards; computed totals live in the tax package, not here.
type Invoice struct {
	// Number is the issuer-assigned invoice number. Required, non-blank.
	Number string

	// Type is the document type code (I-11 invoice, I-12 credit note, ...).
	Type DocumentType

	// IssueDate is the document issue date. Required.
	IssueDate time.Time

	// DueDate is the payment due date, zero when absent.
	DueDate time.Time

	// PeriodStart/PeriodEnd bound an optional service period.
	PeriodStart time.Time
	PeriodEnd   time.Time

	Supplier Party
	Customer Party

	// Lines is the ordered line sequence. Order is significant and
	// preserved through XML generation and parsing.
	Lines []InvoiceLine

	PaymentTerms []PaymentTerms

	// Currency is always TND for conforming documents.
	Currency string

	// SchemaVersion is the declared TEIF version, defaulted when empty.
	SchemaVersion string

	// StampDuty is the regulated surcharge added to the payable amount.
	// Zero means no stamp duty applies.
	StampDuty decimal.Decimal

	// TotalInWords is the caller-supplied spelled-out payable amount.
	// Optional; correctness against the numeric total is cross-checked
	// as a warning only.
	TotalInWords string
}

// Party is the common shape of supplier and customer blocks.
type Party struct {
	// TaxID is the typed tax identifier; its format depends on IDType.
	TaxID  string
	IDType IDType

	// Name is the legal name. Required.
	Name string

	// RegistrationNumber is the trade-register number, optional.
	RegistrationNumber string

	// LegalForm is the declared legal form (SA, SARL, ...), optional.
	LegalForm string

	Address Address

	// Contact fields, optional.
	Phone string
	Email string
}

// Address is a postal address in the TEIF Nad shape.
type Address struct {
	Description string
	Street      string
	City        string
	// PostalCode is a four-digit numeric string.
	PostalCode string
	// Country is an ISO 3166-1 alpha-2 code, normalized to upper case.
	Country string
	// Lang is the language tag for free-text content.
	Lang string
}

// InvoiceLine is a single invoice line. Net and tax amounts are derived
// by the tax engine, never stored here.
type InvoiceLine struct {
	// Number is the 1-based position; unique and strictly increasing
	// within an invoice.
	Number int

	ItemCode    string
	Description string

	// Unit is the unit-of-measure code.
	Unit string

	// Quantity and UnitPrice carry millime precision.
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal

	TaxRate VATRate

	// TaxType tags the levy kind, "I-1602" (VAT) when unset.
	TaxType string

	Lang string
}

// PaymentTerms describes one settlement arrangement. Exactly one of
// Bank or Postal is set, matching Method.
type PaymentTerms struct {
	Method      PaymentMethod
	Description string

	Bank   *BankAccount
	Postal *PostalAccount
}

// BankAccount identifies a bank settlement account.
type BankAccount struct {
	RIB      string
	BankName string
	Branch   string
}

// PostalAccount identifies a postal (CCP) settlement account.
type PostalAccount struct {
	AccountNumber string
}

// SignedDocument is the outcome of a generation call: the XML bytes and
// derived metadata. Immutable once produced.
type SignedDocument struct {
	XML           []byte
	InvoiceNumber string
	Signed        bool
	SignedAt      time.Time
}

// TaxTypeVAT is the default levy code for invoice lines.
const TaxTypeVAT = "I-1602"

// DefaultTaxType returns the line's tax type, falling back to VAT.
func (l InvoiceLine) DefaultTaxType() string {
	if l.TaxType == "" {
		return TaxTypeVAT
	}
	return l.TaxType
}
