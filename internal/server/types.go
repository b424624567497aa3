package server

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/tax"
)

// dateLayout is the wire format for all request/response dates.
const dateLayout = "2006-01-02"

// InvoiceRequest is the JSON shape accepted by the generation and
// validation endpoints. Amounts travel as strings to keep millime
// precision out of float territory.
type InvoiceRequest struct {
	Number       string                `json:"number"`
	Type         string                `json:"type"`
	IssueDate    string                `json:"issue_date"`
	DueDate      string                `json:"due_date,omitempty"`
	PeriodStart  string                `json:"period_start,omitempty"`
	PeriodEnd    string                `json:"period_end,omitempty"`
	Supplier     PartyRequest          `json:"supplier"`
	Customer     PartyRequest          `json:"customer"`
	Lines        []LineRequest         `json:"lines"`
	PaymentTerms []PaymentTermsRequest `json:"payment_terms,omitempty"`
	Currency     string                `json:"currency,omitempty"`
	StampDuty    string                `json:"stamp_duty,omitempty"`
	TotalInWords string                `json:"total_in_words,omitempty"`
}

// PartyRequest mirrors model.Party.
type PartyRequest struct {
	TaxID              string `json:"tax_id"`
	IDType             string `json:"id_type,omitempty"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registration_number,omitempty"`
	LegalForm          string `json:"legal_form,omitempty"`
	AddressDescription string `json:"address_description,omitempty"`
	Street             string `json:"street,omitempty"`
	City               string `json:"city,omitempty"`
	PostalCode         string `json:"postal_code,omitempty"`
	Country            string `json:"country,omitempty"`
	Lang               string `json:"lang,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Email              string `json:"email,omitempty"`
}

// LineRequest mirrors model.InvoiceLine.
type LineRequest struct {
	Number      int    `json:"number"`
	ItemCode    string `json:"item_code,omitempty"`
	Description string `json:"description"`
	Unit        string `json:"unit,omitempty"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TaxRate     int    `json:"tax_rate"`
	TaxType     string `json:"tax_type,omitempty"`
	Lang        string `json:"lang,omitempty"`
}

// PaymentTermsRequest mirrors model.PaymentTerms.
type PaymentTermsRequest struct {
	Method      string `json:"method"`
	Description string `json:"description,omitempty"`

	RIB      string `json:"rib,omitempty"`
	BankName string `json:"bank_name,omitempty"`
	Branch   string `json:"branch,omitempty"`

	PostalAccount string `json:"postal_account,omitempty"`
}

// ToModel converts the request into the domain invoice. Field-format
// problems are reported here; business rules are left to validation.
func (r *InvoiceRequest) ToModel() (*model.Invoice, error) {
	inv := &model.Invoice{
		Number:       r.Number,
		Type:         model.DocumentType(r.Type),
		Currency:     r.Currency,
		TotalInWords: r.TotalInWords,
	}

	var err error
	if inv.IssueDate, err = parseDate(r.IssueDate, "issue_date", true); err != nil {
		return nil, err
	}
	if inv.DueDate, err = parseDate(r.DueDate, "due_date", false); err != nil {
		return nil, err
	}
	if inv.PeriodStart, err = parseDate(r.PeriodStart, "period_start", false); err != nil {
		return nil, err
	}
	if inv.PeriodEnd, err = parseDate(r.PeriodEnd, "period_end", false); err != nil {
		return nil, err
	}
	if inv.StampDuty, err = parseAmount(r.StampDuty, "stamp_duty"); err != nil {
		return nil, err
	}

	inv.Supplier = r.Supplier.toModel()
	inv.Customer = r.Customer.toModel()

	for i, l := range r.Lines {
		line, err := l.toModel(i)
		if err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, line)
	}
	for _, p := range r.PaymentTerms {
		inv.PaymentTerms = append(inv.PaymentTerms, p.toModel())
	}
	return inv, nil
}

func (r PartyRequest) toModel() model.Party {
	return model.Party{
		TaxID:              r.TaxID,
		IDType:             model.IDType(r.IDType),
		Name:               r.Name,
		RegistrationNumber: r.RegistrationNumber,
		LegalForm:          r.LegalForm,
		Address: model.Address{
			Description: r.AddressDescription,
			Street:      r.Street,
			City:        r.City,
			PostalCode:  r.PostalCode,
			Country:     model.NormalizeCountryCode(r.Country),
			Lang:        r.Lang,
		},
		Phone: r.Phone,
		Email: r.Email,
	}
}

func (r LineRequest) toModel(index int) (model.InvoiceLine, error) {
	field := "lines[" + strconv.Itoa(index) + "]"
	qty, err := parseAmount(r.Quantity, field+".quantity")
	if err != nil {
		return model.InvoiceLine{}, err
	}
	price, err := parseAmount(r.UnitPrice, field+".unit_price")
	if err != nil {
		return model.InvoiceLine{}, err
	}
	return model.InvoiceLine{
		Number:      r.Number,
		ItemCode:    r.ItemCode,
		Description: r.Description,
		Unit:        r.Unit,
		Quantity:    qty,
		UnitPrice:   price,
		TaxRate:     model.VATRate(r.TaxRate),
		TaxType:     r.TaxType,
		Lang:        r.Lang,
	}, nil
}

func (r PaymentTermsRequest) toModel() model.PaymentTerms {
	terms := model.PaymentTerms{
		Method:      model.PaymentMethod(r.Method),
		Description: r.Description,
	}
	if r.RIB != "" || r.BankName != "" {
		terms.Bank = &model.BankAccount{RIB: r.RIB, BankName: r.BankName, Branch: r.Branch}
	}
	if r.PostalAccount != "" {
		terms.Postal = &model.PostalAccount{AccountNumber: r.PostalAccount}
	}
	return terms
}

func parseDate(value, field string, required bool) (time.Time, error) {
	if value == "" {
		if required {
			return time.Time{}, model.NewDomainError(model.ErrCodeMissingRequiredField, field, "date is required", nil)
		}
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, model.NewDomainError(model.ErrCodeInvalidDateFormat, field, "expected date in YYYY-MM-DD form", err)
	}
	return t, nil
}

func parseAmount(value, field string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, model.NewDomainError(model.ErrCodeInvalidAmountFormat, field, "expected a decimal amount", err)
	}
	return d, nil
}

// GenerateResponse carries a generated document and its metadata.
type GenerateResponse struct {
	InvoiceNumber string          `json:"invoice_number"`
	Signed        bool            `json:"signed"`
	SignedAt      *time.Time      `json:"signed_at,omitempty"`
	XML           string          `json:"xml"`
	Totals        *TotalsResponse `json:"totals,omitempty"`
	Warnings      []string        `json:"warnings,omitempty"`
}

// TotalsResponse is the JSON view of computed invoice totals.
type TotalsResponse struct {
	Net       string         `json:"net"`
	Tax       string         `json:"tax"`
	Gross     string         `json:"gross"`
	StampDuty string         `json:"stamp_duty"`
	Payable   string         `json:"payable"`
	PerRate   []RateResponse `json:"per_rate,omitempty"`
}

// RateResponse summarizes one VAT rate group.
type RateResponse struct {
	Rate int    `json:"rate"`
	Net  string `json:"net"`
	Tax  string `json:"tax"`
}

func totalsResponse(t *tax.Totals) *TotalsResponse {
	if t == nil {
		return nil
	}
	resp := &TotalsResponse{
		Net:       t.Net.StringFixed(3),
		Tax:       t.Tax.StringFixed(3),
		Gross:     t.Gross.StringFixed(3),
		StampDuty: t.StampDuty.StringFixed(3),
		Payable:   t.Payable.StringFixed(3),
	}
	for _, r := range t.PerRate {
		resp.PerRate = append(resp.PerRate, RateResponse{
			Rate: int(r.Rate),
			Net:  r.Net.StringFixed(3),
			Tax:  r.Tax.StringFixed(3),
		})
	}
	return resp
}

// ViolationResponse is one validation finding.
type ViolationResponse struct {
	Field   string `json:"field"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ValidateResponse reports all violations found in an invoice or a
// raw document.
type ValidateResponse struct {
	Valid      bool                `json:"valid"`
	Violations []ViolationResponse `json:"violations,omitempty"`
}

// InvoiceResponse is the parsed-invoice view returned by the parse
// endpoint, symmetrical with InvoiceRequest.
type InvoiceResponse struct {
	Number       string                `json:"number"`
	Type         string                `json:"type"`
	IssueDate    string                `json:"issue_date"`
	DueDate      string                `json:"due_date,omitempty"`
	PeriodStart  string                `json:"period_start,omitempty"`
	PeriodEnd    string                `json:"period_end,omitempty"`
	Supplier     PartyRequest          `json:"supplier"`
	Customer     PartyRequest          `json:"customer"`
	Lines        []LineRequest         `json:"lines"`
	PaymentTerms []PaymentTermsRequest `json:"payment_terms,omitempty"`
	Currency     string                `json:"currency"`
	StampDuty    string                `json:"stamp_duty,omitempty"`
	TotalInWords string                `json:"total_in_words,omitempty"`
}

// NewInvoiceResponse converts a domain invoice into the wire shape.
func NewInvoiceResponse(inv *model.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		Number:       inv.Number,
		Type:         string(inv.Type),
		IssueDate:    formatDate(inv.IssueDate),
		DueDate:      formatDate(inv.DueDate),
		PeriodStart:  formatDate(inv.PeriodStart),
		PeriodEnd:    formatDate(inv.PeriodEnd),
		Supplier:     partyResponse(inv.Supplier),
		Customer:     partyResponse(inv.Customer),
		Currency:     inv.Currency,
		TotalInWords: inv.TotalInWords,
	}
	if !inv.StampDuty.IsZero() {
		resp.StampDuty = inv.StampDuty.StringFixed(3)
	}
	for _, l := range inv.Lines {
		resp.Lines = append(resp.Lines, LineRequest{
			Number:      l.Number,
			ItemCode:    l.ItemCode,
			Description: l.Description,
			Unit:        l.Unit,
			Quantity:    l.Quantity.String(),
			UnitPrice:   l.UnitPrice.StringFixed(3),
			TaxRate:     int(l.TaxRate),
			TaxType:     l.TaxType,
			Lang:        l.Lang,
		})
	}
	for _, p := range inv.PaymentTerms {
		pr := PaymentTermsRequest{Method: string(p.Method), Description: p.Description}
		if p.Bank != nil {
			pr.RIB = p.Bank.RIB
			pr.BankName = p.Bank.BankName
			pr.Branch = p.Bank.Branch
		}
		if p.Postal != nil {
			pr.PostalAccount = p.Postal.AccountNumber
		}
		resp.PaymentTerms = append(resp.PaymentTerms, pr)
	}
	return resp
}

func partyResponse(p model.Party) PartyRequest {
	return PartyRequest{
		TaxID:              p.TaxID,
		IDType:             string(p.IDType),
		Name:               p.Name,
		RegistrationNumber: p.RegistrationNumber,
		LegalForm:          p.LegalForm,
		AddressDescription: p.Address.Description,
		Street:             p.Address.Street,
		City:               p.Address.City,
		PostalCode:         p.Address.PostalCode,
		Country:            p.Address.Country,
		Lang:               p.Address.Lang,
		Phone:              p.Phone,
		Email:              p.Email,
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
