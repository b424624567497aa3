package teif

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tnvoice/elfatoora/internal/model"
)

// Wire structures mirroring the TEIF schema. Decimal fields stay as
// strings and are parsed explicitly.
type teifDocument struct {
	// XMLName carries no name constraint so that a wrong root element
	// reaches the explicit check in ParseBytes instead of failing the
	// decode itself.
	XMLName xml.Name
	Version string      `xml:"version,attr"`
	Header  teifHeader  `xml:"InvoiceHeader"`
	Body    teifBody    `xml:"InvoiceBody"`
	Sig     *anyElement `xml:"Signature"`
}

type anyElement struct{}

type teifHeader struct {
	Sender   teifIdentifier `xml:"MessageSenderIdentifier"`
	Receiver teifIdentifier `xml:"MessageRecieverIdentifier"`
}

type teifIdentifier struct {
	Type  string `xml:"type,attr"`
	Value string `xml:",chardata"`
}

type teifBody struct {
	Bgm        teifBgm            `xml:"Bgm"`
	Dates      []teifDateText     `xml:"Dtm>DateText"`
	Partners   []teifPartner      `xml:"PartnerSection>PartnerDetails"`
	Payments   []teifPytDetails   `xml:"PytSection>PytSectionDetails"`
	Lines      []teifLin          `xml:"LinSection>Lin"`
	Amounts    []teifMoa          `xml:"InvoiceMoa>AmountDetails>Moa"`
	TaxDetails []teifInvoiceTaxEl `xml:"InvoiceTax>InvoiceTaxDetails"`
}

type teifBgm struct {
	DocumentIdentifier string      `xml:"DocumentIdentifier"`
	DocumentType       teifDocType `xml:"DocumentType"`
}

type teifDocType struct {
	Code  string `xml:"code,attr"`
	Label string `xml:",chardata"`
}

type teifDateText struct {
	Format       string `xml:"format,attr"`
	FunctionCode string `xml:"functionCode,attr"`
	Value        string `xml:",chardata"`
}

type teifPartner struct {
	FunctionCode string     `xml:"functionCode,attr"`
	Nad          teifNad    `xml:"Nad"`
	Contacts     []teifComm `xml:"CtaSection>Communication"`
}

type teifNad struct {
	Identifier   teifIdentifier `xml:"PartnerIdentifier"`
	Name         string         `xml:"PartnerName"`
	Registration string         `xml:"RegistrationIdentifier"`
	LegalForm    string         `xml:"LegalForm"`
	Description  teifLangText   `xml:"AdressDescription"`
	Street       string         `xml:"Street"`
	City         string         `xml:"CityName"`
	PostalCode   string         `xml:"PostalCode"`
	Country      string         `xml:"Country"`
}

type teifLangText struct {
	Lang  string `xml:"lang,attr"`
	Value string `xml:",chardata"`
}

type teifComm struct {
	MeansTypeCode string `xml:"ComMeansTypeCode"`
	Address       string `xml:"ComAdress"`
}

type teifPytDetails struct {
	TypeCode    string      `xml:"Pyt>PaymentTearmsTypeCode"`
	Description string      `xml:"Pyt>PaymentTearmsDescription"`
	Fii         *teifPytFii `xml:"PytFii"`
}

type teifPytFii struct {
	AccountNumber   string `xml:"AccountHolder>AccountNumber"`
	BranchID        string `xml:"InstitutionIdentification>BranchIdentifier"`
	InstitutionName string `xml:"InstitutionIdentification>InstitutionName"`
}

type teifLin struct {
	LineNumber     int          `xml:"lineNumber,attr"`
	ItemIdentifier string       `xml:"ItemIdentifier"`
	Imd            teifLinImd   `xml:"LinImd"`
	Quantity       teifQuantity `xml:"LinQty>Quantity"`
	Tax            teifLinTax   `xml:"LinTax"`
	Amounts        []teifMoa    `xml:"LinMoa>MoaDetails>Moa"`
}

type teifLinImd struct {
	Lang        string `xml:"lang,attr"`
	Description string `xml:"ItemDescription"`
}

type teifQuantity struct {
	Unit  string `xml:"measurementUnit,attr"`
	Value string `xml:",chardata"`
}

type teifLinTax struct {
	TypeName teifDocType `xml:"TaxTypeName"`
	Rate     string      `xml:"TaxDetails>TaxRate"`
}

type teifMoa struct {
	AmountTypeCode string     `xml:"amountTypeCode,attr"`
	Amount         teifAmount `xml:"Amount"`
	Description    string     `xml:"AmountDescription"`
}

type teifAmount struct {
	Currency string `xml:"currencyIdentifier,attr"`
	Value    string `xml:",chardata"`
}

type teifInvoiceTaxEl struct {
	Tax     teifLinTax `xml:"Tax"`
	Amounts []teifMoa  `xml:"AmountDetails>Moa"`
}

// Parser deserializes TEIF XML (signed or unsigned) back into the
// domain model. Parsing never verifies signatures; trust checks are a
// separate operation.
type Parser struct{}

// NewParser creates a parser.
func NewParser() *Parser {
	return &Parser{}
}

// CanParse reports whether the content looks like a TEIF document.
func (p *Parser) CanParse(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || (trimmed[0] != '<') {
		return false
	}
	return bytes.Contains(content, []byte("<TEIF"))
}

// Parse reads a TEIF document into an Invoice.
func (p *Parser) Parse(ctx context.Context, r io.Reader) (*model.Invoice, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, model.NewDomainError(model.ErrCodeXMLParsing, "content", "failed to read content", err)
	}
	return p.ParseBytes(ctx, content)
}

// ParseBytes reads a TEIF document into an Invoice.
func (p *Parser) ParseBytes(_ context.Context, content []byte) (*model.Invoice, error) {
	var doc teifDocument
	dec := xml.NewDecoder(bytes.NewReader(content))
	// No DTD or external entity handling: the decoder is strict and
	// never fetches anything.
	dec.Strict = true
	if err := dec.Decode(&doc); err != nil {
		return nil, model.NewDomainError(model.ErrCodeXMLParsing, "xml", "failed to parse TEIF document", err)
	}
	if doc.XMLName.Local != RootTag {
		return nil, model.NewDomainError(model.ErrCodeInvalidXMLStructure, "root",
			fmt.Sprintf("unexpected root element %q", doc.XMLName.Local), nil)
	}
	return p.convert(&doc)
}

func (p *Parser) convert(doc *teifDocument) (*model.Invoice, error) {
	inv := &model.Invoice{
		Number:        doc.Body.Bgm.DocumentIdentifier,
		Type:          model.DocumentType(doc.Body.Bgm.DocumentType.Code),
		Currency:      model.CurrencyTND,
		SchemaVersion: doc.Version,
	}

	for _, d := range doc.Body.Dates {
		if err := p.applyDate(inv, d); err != nil {
			return nil, err
		}
	}

	for _, partner := range doc.Body.Partners {
		party, err := p.convertParty(&partner)
		if err != nil {
			return nil, err
		}
		switch partner.FunctionCode {
		case model.PartnerFunctionSupplier:
			inv.Supplier = *party
		case model.PartnerFunctionCustomer:
			inv.Customer = *party
		default:
			return nil, model.NewDomainError(model.ErrCodeUnmarshalling, "partner",
				fmt.Sprintf("unknown partner function code %q", partner.FunctionCode), nil)
		}
	}

	for _, pyt := range doc.Body.Payments {
		terms, err := p.convertPaymentTerms(&pyt)
		if err != nil {
			return nil, err
		}
		inv.PaymentTerms = append(inv.PaymentTerms, *terms)
	}

	for i, lin := range doc.Body.Lines {
		line, err := p.convertLine(&lin)
		if err != nil {
			return nil, model.NewDomainError(model.ErrCodeUnmarshalling,
				fmt.Sprintf("lines[%d]", i), "failed to convert invoice line", err)
		}
		inv.Lines = append(inv.Lines, *line)
	}

	for _, moa := range doc.Body.Amounts {
		switch moa.AmountTypeCode {
		case model.AmountTypeStampDuty:
			duty, err := decimal.NewFromString(strings.TrimSpace(moa.Amount.Value))
			if err != nil {
				return nil, model.NewDomainError(model.ErrCodeInvalidAmountFormat, "stampDuty",
					fmt.Sprintf("unparseable stamp duty amount %q", moa.Amount.Value), err)
			}
			inv.StampDuty = duty
		case model.AmountTypePayable:
			if moa.Description != "" {
				inv.TotalInWords = strings.TrimSpace(moa.Description)
			}
		}
	}

	return inv, nil
}

func (p *Parser) applyDate(inv *model.Invoice, d teifDateText) error {
	value := strings.TrimSpace(d.Value)
	switch d.FunctionCode {
	case model.DateFunctionIssue:
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return model.NewDomainError(model.ErrCodeInvalidDateFormat, "issueDate",
				fmt.Sprintf("unparseable date %q", value), err)
		}
		inv.IssueDate = t
	case model.DateFunctionDue:
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return model.NewDomainError(model.ErrCodeInvalidDateFormat, "dueDate",
				fmt.Sprintf("unparseable date %q", value), err)
		}
		inv.DueDate = t
	case model.DateFunctionService:
		parts := strings.SplitN(value, rangeSeparator, 2)
		if len(parts) != 2 {
			return model.NewDomainError(model.ErrCodeInvalidDateFormat, "period",
				fmt.Sprintf("service period %q is not a date range", value), nil)
		}
		start, err := time.Parse(dateLayout, parts[0])
		if err != nil {
			return model.NewDomainError(model.ErrCodeInvalidDateFormat, "period.start",
				fmt.Sprintf("unparseable date %q", parts[0]), err)
		}
		end, err := time.Parse(dateLayout, parts[1])
		if err != nil {
			return model.NewDomainError(model.ErrCodeInvalidDateFormat, "period.end",
				fmt.Sprintf("unparseable date %q", parts[1]), err)
		}
		inv.PeriodStart, inv.PeriodEnd = start, end
	}
	return nil
}

func (p *Parser) convertParty(partner *teifPartner) (*model.Party, error) {
	party := &model.Party{
		TaxID:              strings.TrimSpace(partner.Nad.Identifier.Value),
		IDType:             model.IDType(partner.Nad.Identifier.Type),
		Name:               partner.Nad.Name,
		RegistrationNumber: partner.Nad.Registration,
		LegalForm:          partner.Nad.LegalForm,
		Address: model.Address{
			Description: partner.Nad.Description.Value,
			Street:      partner.Nad.Street,
			City:        partner.Nad.City,
			PostalCode:  partner.Nad.PostalCode,
			Country:     strings.TrimSpace(partner.Nad.Country),
			Lang:        partner.Nad.Description.Lang,
		},
	}
	for _, c := range partner.Contacts {
		switch c.MeansTypeCode {
		case ComMeansPhone:
			party.Phone = c.Address
		case ComMeansEmail:
			party.Email = c.Address
		}
	}
	return party, nil
}

func (p *Parser) convertPaymentTerms(pyt *teifPytDetails) (*model.PaymentTerms, error) {
	terms := &model.PaymentTerms{
		Method:      model.PaymentMethod(pyt.TypeCode),
		Description: pyt.Description,
	}
	if pyt.Fii == nil {
		return terms, nil
	}
	switch terms.Method {
	case model.PaymentMethodPostalTransfer:
		terms.Postal = &model.PostalAccount{AccountNumber: pyt.Fii.AccountNumber}
	default:
		terms.Bank = &model.BankAccount{
			RIB:      pyt.Fii.AccountNumber,
			BankName: pyt.Fii.InstitutionName,
			Branch:   pyt.Fii.BranchID,
		}
	}
	return terms, nil
}

func (p *Parser) convertLine(lin *teifLin) (*model.InvoiceLine, error) {
	line := &model.InvoiceLine{
		Number:      lin.LineNumber,
		ItemCode:    lin.ItemIdentifier,
		Description: lin.Imd.Description,
		Unit:        lin.Quantity.Unit,
		TaxType:     lin.Tax.TypeName.Code,
		Lang:        lin.Imd.Lang,
	}

	qty, err := decimal.NewFromString(strings.TrimSpace(lin.Quantity.Value))
	if err != nil {
		return nil, fmt.Errorf("unparseable quantity %q: %w", lin.Quantity.Value, err)
	}
	line.Quantity = qty

	rateStr := strings.TrimSpace(lin.Tax.Rate)
	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return nil, fmt.Errorf("unparseable tax rate %q: %w", rateStr, err)
	}
	line.TaxRate = model.VATRate(rate.IntPart())

	for _, moa := range lin.Amounts {
		if moa.AmountTypeCode == model.AmountTypeUnitPrice {
			price, err := decimal.NewFromString(strings.TrimSpace(moa.Amount.Value))
			if err != nil {
				return nil, fmt.Errorf("unparseable unit price %q: %w", moa.Amount.Value, err)
			}
			line.UnitPrice = price
		}
	}
	return line, nil
}
