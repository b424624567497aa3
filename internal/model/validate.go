package model

import (
	"fmt"
	"strings"
)

// Field validators. Each comes as a pure predicate plus a Check variant
// returning the specific rule violated. Absence (empty value) is always
// valid: requiredness is the caller's concern, checked separately.

// matricule letter sets. The control letter may be any letter except
// I and O (too close to 1 and 0 on printed forms); the VAT-regime and
// category positions each come from a fixed five-letter set.
const (
	matriculeVATLetters      = "ABDNP"
	matriculeCategoryLetters = "CEMNP"
)

// ValidTaxID reports whether value is a well-formed identifier for the
// declared type. Unknown types are rejected.
func ValidTaxID(idType IDType, value string) bool {
	return CheckTaxID(idType, value) == nil
}

// CheckTaxID validates value against the format of the declared
// identifier type, returning the specific rule violated.
func CheckTaxID(idType IDType, value string) error {
	if value == "" {
		return nil
	}
	switch idType {
	case IDTypeMatricule:
		return checkMatricule(value)
	case IDTypeCIN:
		if !allDigits(value) || len(value) != 8 {
			return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
				fmt.Sprintf("national identity number must be exactly 8 digits, got %q", value), nil)
		}
		return nil
	case IDTypeCarteSejour:
		if !allDigits(value) || len(value) != 9 {
			return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
				fmt.Sprintf("residency card number must be exactly 9 digits, got %q", value), nil)
		}
		return nil
	case IDTypeOther:
		if len(value) > 35 {
			return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
				fmt.Sprintf("identifier exceeds 35 characters (%d)", len(value)), nil)
		}
		return nil
	default:
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxIdType",
			fmt.Sprintf("unknown identifier type %q", string(idType)), nil)
	}
}

// checkMatricule validates the 13-character matricule fiscal:
// 7 digits, control letter (not I/O), VAT-regime letter, category
// letter, 3-digit establishment number.
func checkMatricule(value string) error {
	if len(value) != 13 {
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
			fmt.Sprintf("matricule fiscal must be 13 characters, got %d", len(value)), nil)
	}
	if !allDigits(value[:7]) {
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
			"matricule fiscal must start with 7 digits", nil)
	}
	control := value[7]
	if control < 'A' || control > 'Z' || control == 'I' || control == 'O' {
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
			fmt.Sprintf("control letter %q must be an uppercase letter other than I or O", string(control)), nil)
	}
	if !strings.ContainsRune(matriculeVATLetters, rune(value[8])) {
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
			fmt.Sprintf("VAT-regime code %q must be one of %s", string(value[8]), matriculeVATLetters), nil)
	}
	if !strings.ContainsRune(matriculeCategoryLetters, rune(value[9])) {
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
			fmt.Sprintf("category code %q must be one of %s", string(value[9]), matriculeCategoryLetters), nil)
	}
	if !allDigits(value[10:]) {
		return NewDomainError(ErrCodeInvalidTaxIdentifier, "taxId",
			"matricule fiscal must end with a 3-digit establishment number", nil)
	}
	return nil
}

// ValidDocumentType reports whether the code is in the national set.
func ValidDocumentType(code DocumentType) bool {
	return code == "" || code.IsValid()
}

// CheckDocumentType validates the document type code.
func CheckDocumentType(code DocumentType) error {
	if code == "" || code.IsValid() {
		return nil
	}
	return NewDomainError(ErrCodeInvalidDocumentType, "documentType",
		fmt.Sprintf("document type %q is not in the allowed set", string(code)), nil)
}

// ValidVATRate reports whether the rate is one of {0, 7, 13, 19}.
func ValidVATRate(rate VATRate) bool {
	return rate.IsValid()
}

// CheckVATRate validates the rate against the closed national set.
func CheckVATRate(rate VATRate) error {
	if rate.IsValid() {
		return nil
	}
	return NewDomainError(ErrCodeInvalidTaxRate, "taxRate",
		fmt.Sprintf("VAT rate %d%% is not one of the allowed rates (0, 7, 13, 19)", int(rate)), nil)
}

// ValidCountryCode reports whether code is a known ISO 3166-1 alpha-2
// code, matched case-insensitively.
func ValidCountryCode(code string) bool {
	return CheckCountryCode(code) == nil
}

// CheckCountryCode validates an ISO 3166-1 alpha-2 country code.
func CheckCountryCode(code string) error {
	if code == "" {
		return nil
	}
	if _, ok := isoCountries[strings.ToUpper(code)]; !ok {
		return NewDomainError(ErrCodeValidationFailed, "country",
			fmt.Sprintf("unknown ISO 3166-1 alpha-2 country code %q", code), nil)
	}
	return nil
}

// NormalizeCountryCode uppercases a country code for output.
func NormalizeCountryCode(code string) string {
	return strings.ToUpper(code)
}

// ValidPostalCode reports whether code is a four-digit numeric string.
func ValidPostalCode(code string) bool {
	return CheckPostalCode(code) == nil
}

// CheckPostalCode validates the fixed-length numeric postal code.
func CheckPostalCode(code string) error {
	if code == "" {
		return nil
	}
	if len(code) != 4 || !allDigits(code) {
		return NewDomainError(ErrCodeInvalidPostalCode, "postalCode",
			fmt.Sprintf("postal code must be exactly 4 digits, got %q", code), nil)
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Validate runs the full field-level and cross-field validation pass,
// collecting every violation rather than stopping at the first.
func (inv *Invoice) Validate() *ValidationErrors {
	errs := &ValidationErrors{}

	if strings.TrimSpace(inv.Number) == "" {
		errs.Add("number", ErrCodeMissingRequiredField, "invoice number is required")
	}
	if inv.Type == "" {
		errs.Add("documentType", ErrCodeMissingRequiredField, "document type is required")
	} else if err := CheckDocumentType(inv.Type); err != nil {
		addDomainError(errs, "documentType", err)
	}
	if inv.IssueDate.IsZero() {
		errs.Add("issueDate", ErrCodeMissingRequiredField, "issue date is required")
	}
	if !inv.DueDate.IsZero() && inv.DueDate.Before(inv.IssueDate) {
		errs.Add("dueDate", ErrCodeInvalidDateFormat, "due date precedes issue date")
	}
	if (inv.PeriodStart.IsZero()) != (inv.PeriodEnd.IsZero()) {
		errs.Add("period", ErrCodeInvalidDateFormat, "service period requires both start and end dates")
	} else if !inv.PeriodStart.IsZero() && inv.PeriodEnd.Before(inv.PeriodStart) {
		errs.Add("period", ErrCodeInvalidDateFormat, "service period end precedes start")
	}
	if inv.Currency != "" && inv.Currency != CurrencyTND {
		errs.Add("currency", ErrCodeInvalidCurrency,
			fmt.Sprintf("currency %q is not supported, only %s", inv.Currency, CurrencyTND))
	}
	if !inv.StampDuty.IsZero() && inv.StampDuty.IsNegative() {
		errs.Add("stampDuty", ErrCodeInvalidAmountFormat, "stamp duty must not be negative")
	}

	validateParty(errs, "supplier", &inv.Supplier, true)
	validateParty(errs, "customer", &inv.Customer, false)

	if len(inv.Lines) == 0 {
		errs.Add("lines", ErrCodeMissingRequiredField, "invoice must contain at least one line")
	}
	prev := 0
	for i, line := range inv.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if line.Number <= 0 {
			errs.Add(field+".number", ErrCodeMissingRequiredField, "line number must be positive")
		} else if line.Number <= prev {
			errs.Add(field+".number", ErrCodeValidationFailed,
				fmt.Sprintf("line numbers must be strictly increasing (%d after %d)", line.Number, prev))
		}
		prev = line.Number
		if strings.TrimSpace(line.Description) == "" {
			errs.Add(field+".description", ErrCodeMissingRequiredField, "line description is required")
		}
		if line.Quantity.IsZero() || line.Quantity.IsNegative() {
			errs.Add(field+".quantity", ErrCodeInvalidAmountFormat, "quantity must be positive")
		}
		if line.UnitPrice.IsNegative() {
			errs.Add(field+".unitPrice", ErrCodeInvalidAmountFormat, "unit price must not be negative")
		}
		if err := CheckVATRate(line.TaxRate); err != nil {
			addDomainError(errs, field+".taxRate", err)
		}
	}

	for i, pt := range inv.PaymentTerms {
		field := fmt.Sprintf("paymentTerms[%d]", i)
		if !pt.Method.IsValid() {
			errs.Add(field+".method", ErrCodeValidationFailed,
				fmt.Sprintf("unknown payment method %q", string(pt.Method)))
			continue
		}
		switch pt.Method {
		case PaymentMethodBankTransfer:
			if pt.Bank == nil {
				errs.Add(field+".bank", ErrCodeMissingRequiredField, "bank transfer requires a bank account")
			} else if pt.Postal != nil {
				errs.Add(field, ErrCodeValidationFailed, "bank transfer must not carry a postal account")
			}
		case PaymentMethodPostalTransfer:
			if pt.Postal == nil {
				errs.Add(field+".postal", ErrCodeMissingRequiredField, "postal transfer requires a postal account")
			} else if pt.Bank != nil {
				errs.Add(field, ErrCodeValidationFailed, "postal transfer must not carry a bank account")
			}
		}
	}

	return errs
}

func validateParty(errs *ValidationErrors, prefix string, p *Party, taxIDRequired bool) {
	if strings.TrimSpace(p.Name) == "" {
		errs.Add(prefix+".name", ErrCodeMissingRequiredField, "party name is required")
	}
	if p.TaxID == "" {
		if taxIDRequired {
			errs.Add(prefix+".taxId", ErrCodeMissingRequiredField, "tax identifier is required")
		}
	} else {
		if !p.IDType.IsValid() {
			errs.Add(prefix+".taxIdType", ErrCodeInvalidTaxIdentifier,
				fmt.Sprintf("unknown identifier type %q", string(p.IDType)))
		} else if err := CheckTaxID(p.IDType, p.TaxID); err != nil {
			addDomainError(errs, prefix+".taxId", err)
		}
	}
	if err := CheckPostalCode(p.Address.PostalCode); err != nil {
		addDomainError(errs, prefix+".address.postalCode", err)
	}
	if err := CheckCountryCode(p.Address.Country); err != nil {
		addDomainError(errs, prefix+".address.country", err)
	}
}

func addDomainError(errs *ValidationErrors, field string, err error) {
	if de, ok := err.(*DomainError); ok {
		errs.Add(field, de.Code, de.Message)
		return
	}
	errs.Add(field, ErrCodeValidationFailed, err.Error())
}
