package model

// DocumentType identifies the TEIF document kind (Bgm/DocumentTypeCode).
type DocumentType string

const (
	DocumentTypeInvoice           DocumentType = "I-11"
	DocumentTypeCreditNote        DocumentType = "I-12"
	DocumentTypeDebitNote         DocumentType = "I-13"
	DocumentTypeSimplifiedInvoice DocumentType = "I-14"
	DocumentTypeSelfBilling       DocumentType = "I-15"
	DocumentTypeCorrectiveInvoice DocumentType = "I-16"
)

// IsValid reports whether the code belongs to the closed national set.
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentTypeInvoice, DocumentTypeCreditNote, DocumentTypeDebitNote,
		DocumentTypeSimplifiedInvoice, DocumentTypeSelfBilling, DocumentTypeCorrectiveInvoice:
		return true
	}
	return false
}

// Label returns a human-readable name for the document type.
func (d DocumentType) Label() string {
	switch d {
	case DocumentTypeInvoice:
		return "invoice"
	case DocumentTypeCreditNote:
		return "credit note"
	case DocumentTypeDebitNote:
		return "debit note"
	case DocumentTypeSimplifiedInvoice:
		return "simplified invoice"
	case DocumentTypeSelfBilling:
		return "self-billing invoice"
	case DocumentTypeCorrectiveInvoice:
		return "corrective invoice"
	default:
		return "unknown"
	}
}

// IDType identifies the format of a party tax identifier.
type IDType string

const (
	// IDTypeMatricule is the 13-character company matricule fiscal.
	IDTypeMatricule IDType = "I-01"
	// IDTypeCIN is the 8-digit national identity card number.
	IDTypeCIN IDType = "I-02"
	// IDTypeCarteSejour is the 9-digit residency card / passport number.
	IDTypeCarteSejour IDType = "I-03"
	// IDTypeOther is a free-form identifier of at most 35 characters.
	IDTypeOther IDType = "I-04"
)

// IsValid reports whether the identifier type is known.
func (t IDType) IsValid() bool {
	switch t {
	case IDTypeMatricule, IDTypeCIN, IDTypeCarteSejour, IDTypeOther:
		return true
	}
	return false
}

// VATRate is one of the VAT percentages admitted by the national tax code.
type VATRate int

const (
	VATRate0  VATRate = 0
	VATRate7  VATRate = 7
	VATRate13 VATRate = 13
	VATRate19 VATRate = 19
)

// IsValid reports whether the rate belongs to the fixed national set.
// A mathematically sensible percentage outside the set is still invalid.
func (r VATRate) IsValid() bool {
	switch r {
	case VATRate0, VATRate7, VATRate13, VATRate19:
		return true
	}
	return false
}

// PaymentMethod is the TEIF payment-means code.
type PaymentMethod string

const (
	PaymentMethodBankTransfer   PaymentMethod = "I-131"
	PaymentMethodPostalTransfer PaymentMethod = "I-132"
	PaymentMethodOther          PaymentMethod = "I-139"
)

// IsValid reports whether the payment method is known.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodPostalTransfer, PaymentMethodOther:
		return true
	}
	return false
}

// CurrencyTND is the only currency the national format admits.
const CurrencyTND = "TND"

// SchemaVersion is the TEIF schema version generated documents declare.
const SchemaVersion = "1.8.8"

// Partner function codes used in the PartnerSection.
const (
	PartnerFunctionSupplier = "I-62"
	PartnerFunctionCustomer = "I-64"
)

// Date function codes used on Dtm elements.
const (
	DateFunctionIssue   = "I-31"
	DateFunctionDue     = "I-32"
	DateFunctionService = "I-36"
)

// Amount type codes used on Moa elements.
const (
	AmountTypeLineNet    = "I-171"
	AmountTypeUnitPrice  = "I-172"
	AmountTypeTotalTax   = "I-176"
	AmountTypeNetTotal   = "I-180"
	AmountTypeGrossTotal = "I-181"
	AmountTypeStampDuty  = "I-182"
	AmountTypePayable    = "I-183"
)
