// Package teif maps validated domain invoices to and from the TEIF XML
// document structure published for the El Fatoora network.
package teif

import (
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	dec "github.com/tnvoice/elfatoora/internal/decimal"
	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/tax"
)

// TEIF structural constants.
const (
	RootTag           = "TEIF"
	ControllingAgency = "TTN"
	DateFormatAttr    = "ddMMyy"
	CurrencyCodeList  = "ISO_4217"
	CountryCodeList   = "ISO_3166-1"

	// dateLayout is the Go layout matching ddMMyy.
	dateLayout = "020106"

	// rangeSeparator joins the two dates of a service period.
	rangeSeparator = "-"

	// Communication means codes inside CtaSection.
	ComMeansPhone = "I-101"
	ComMeansEmail = "I-102"
)

// Builder maps a validated Invoice plus its computed totals to the TEIF
// XML structure. It performs no validation and invents no values beyond
// the documented defaults (schema version, VAT tax type). Output is
// deterministic: equal inputs produce byte-identical documents.
type Builder struct{}

// NewBuilder creates a builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders the unsigned TEIF document as bytes.
func (b *Builder) Build(inv *model.Invoice, totals *tax.Totals) ([]byte, error) {
	doc, err := b.BuildDocument(inv, totals)
	if err != nil {
		return nil, err
	}
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, model.NewDomainError(model.ErrCodeMarshalling, "", "failed to serialize TEIF document", err)
	}
	return out, nil
}

// BuildDocument renders the unsigned TEIF document as an etree tree,
// for callers that sign before serializing.
func (b *Builder) BuildDocument(inv *model.Invoice, totals *tax.Totals) (*etree.Document, error) {
	if inv == nil || totals == nil {
		return nil, model.NewDomainError(model.ErrCodeMarshalling, "", "invoice and totals are required", nil)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	version := inv.SchemaVersion
	if version == "" {
		version = model.SchemaVersion
	}
	root := doc.CreateElement(RootTag)
	root.CreateAttr("version", version)
	root.CreateAttr("controlingAgency", ControllingAgency)

	b.writeHeader(root, inv)
	b.writeBody(root, inv, totals)
	return doc, nil
}

func (b *Builder) writeHeader(root *etree.Element, inv *model.Invoice) {
	header := root.CreateElement("InvoiceHeader")

	sender := header.CreateElement("MessageSenderIdentifier")
	sender.CreateAttr("type", string(inv.Supplier.IDType))
	sender.SetText(inv.Supplier.TaxID)

	receiver := header.CreateElement("MessageRecieverIdentifier")
	receiver.CreateAttr("type", string(inv.Customer.IDType))
	receiver.SetText(inv.Customer.TaxID)
}

func (b *Builder) writeBody(root *etree.Element, inv *model.Invoice, totals *tax.Totals) {
	body := root.CreateElement("InvoiceBody")

	bgm := body.CreateElement("Bgm")
	bgm.CreateElement("DocumentIdentifier").SetText(inv.Number)
	docType := bgm.CreateElement("DocumentType")
	docType.CreateAttr("code", string(inv.Type))
	docType.SetText(inv.Type.Label())

	dtm := body.CreateElement("Dtm")
	writeDate(dtm, model.DateFunctionIssue, inv.IssueDate)
	if !inv.DueDate.IsZero() {
		writeDate(dtm, model.DateFunctionDue, inv.DueDate)
	}
	if !inv.PeriodStart.IsZero() && !inv.PeriodEnd.IsZero() {
		writeDateRange(dtm, model.DateFunctionService, inv.PeriodStart, inv.PeriodEnd)
	}

	partners := body.CreateElement("PartnerSection")
	b.writePartner(partners, model.PartnerFunctionSupplier, &inv.Supplier)
	b.writePartner(partners, model.PartnerFunctionCustomer, &inv.Customer)

	if len(inv.PaymentTerms) > 0 {
		pyt := body.CreateElement("PytSection")
		for _, terms := range inv.PaymentTerms {
			b.writePaymentTerms(pyt, &terms)
		}
	}

	lin := body.CreateElement("LinSection")
	for _, line := range inv.Lines {
		amounts, _ := totals.ForLine(line.Number)
		b.writeLine(lin, &line, amounts)
	}

	b.writeInvoiceMoa(body, inv, totals)
	b.writeInvoiceTax(body, totals)
}

func (b *Builder) writePartner(section *etree.Element, functionCode string, p *model.Party) {
	details := section.CreateElement("PartnerDetails")
	details.CreateAttr("functionCode", functionCode)

	nad := details.CreateElement("Nad")
	id := nad.CreateElement("PartnerIdentifier")
	id.CreateAttr("type", string(p.IDType))
	id.SetText(p.TaxID)
	nad.CreateElement("PartnerName").SetText(p.Name)
	if p.RegistrationNumber != "" {
		nad.CreateElement("RegistrationIdentifier").SetText(p.RegistrationNumber)
	}
	if p.LegalForm != "" {
		nad.CreateElement("LegalForm").SetText(p.LegalForm)
	}
	if p.Address.Description != "" {
		desc := nad.CreateElement("AdressDescription")
		if p.Address.Lang != "" {
			desc.CreateAttr("lang", p.Address.Lang)
		}
		desc.SetText(p.Address.Description)
	}
	if p.Address.Street != "" {
		nad.CreateElement("Street").SetText(p.Address.Street)
	}
	if p.Address.City != "" {
		nad.CreateElement("CityName").SetText(p.Address.City)
	}
	if p.Address.PostalCode != "" {
		nad.CreateElement("PostalCode").SetText(p.Address.PostalCode)
	}
	if p.Address.Country != "" {
		country := nad.CreateElement("Country")
		country.CreateAttr("codeList", CountryCodeList)
		country.SetText(model.NormalizeCountryCode(p.Address.Country))
	}

	if p.Phone != "" || p.Email != "" {
		cta := details.CreateElement("CtaSection")
		if p.Phone != "" {
			writeCommunication(cta, ComMeansPhone, p.Phone)
		}
		if p.Email != "" {
			writeCommunication(cta, ComMeansEmail, p.Email)
		}
	}
}

func writeCommunication(cta *etree.Element, meansCode, address string) {
	com := cta.CreateElement("Communication")
	com.CreateElement("ComMeansTypeCode").SetText(meansCode)
	com.CreateElement("ComAdress").SetText(address)
}

func (b *Builder) writePaymentTerms(section *etree.Element, terms *model.PaymentTerms) {
	details := section.CreateElement("PytSectionDetails")

	pyt := details.CreateElement("Pyt")
	pyt.CreateElement("PaymentTearmsTypeCode").SetText(string(terms.Method))
	if terms.Description != "" {
		pyt.CreateElement("PaymentTearmsDescription").SetText(terms.Description)
	}

	switch {
	case terms.Bank != nil:
		fii := details.CreateElement("PytFii")
		holder := fii.CreateElement("AccountHolder")
		holder.CreateElement("AccountNumber").SetText(terms.Bank.RIB)
		inst := fii.CreateElement("InstitutionIdentification")
		if terms.Bank.Branch != "" {
			inst.CreateElement("BranchIdentifier").SetText(terms.Bank.Branch)
		}
		if terms.Bank.BankName != "" {
			inst.CreateElement("InstitutionName").SetText(terms.Bank.BankName)
		}
	case terms.Postal != nil:
		fii := details.CreateElement("PytFii")
		holder := fii.CreateElement("AccountHolder")
		holder.CreateElement("AccountNumber").SetText(terms.Postal.AccountNumber)
		inst := fii.CreateElement("InstitutionIdentification")
		inst.CreateElement("InstitutionName").SetText("La Poste Tunisienne")
	}
}

func (b *Builder) writeLine(section *etree.Element, line *model.InvoiceLine, amounts tax.LineAmounts) {
	lin := section.CreateElement("Lin")
	lin.CreateAttr("lineNumber", strconv.Itoa(line.Number))

	if line.ItemCode != "" {
		lin.CreateElement("ItemIdentifier").SetText(line.ItemCode)
	}

	imd := lin.CreateElement("LinImd")
	if line.Lang != "" {
		imd.CreateAttr("lang", line.Lang)
	}
	imd.CreateElement("ItemDescription").SetText(line.Description)

	qty := lin.CreateElement("LinQty")
	quantity := qty.CreateElement("Quantity")
	if line.Unit != "" {
		quantity.CreateAttr("measurementUnit", line.Unit)
	}
	quantity.SetText(dec.Format(line.Quantity))

	linTax := lin.CreateElement("LinTax")
	taxName := linTax.CreateElement("TaxTypeName")
	taxName.CreateAttr("code", line.DefaultTaxType())
	taxName.SetText("TVA")
	linTax.CreateElement("TaxDetails").CreateElement("TaxRate").SetText(strconv.Itoa(int(line.TaxRate)))

	moa := lin.CreateElement("LinMoa").CreateElement("MoaDetails")
	writeMoa(moa, model.AmountTypeLineNet, amounts.Net)
	writeMoa(moa, model.AmountTypeTotalTax, amounts.Tax)
	writeMoa(moa, model.AmountTypeUnitPrice, line.UnitPrice)
}

func (b *Builder) writeInvoiceMoa(body *etree.Element, inv *model.Invoice, totals *tax.Totals) {
	details := body.CreateElement("InvoiceMoa").CreateElement("AmountDetails")
	writeMoa(details, model.AmountTypeNetTotal, totals.Net)
	writeMoa(details, model.AmountTypeTotalTax, totals.Tax)
	writeMoa(details, model.AmountTypeGrossTotal, totals.Gross)
	if !totals.StampDuty.IsZero() {
		writeMoa(details, model.AmountTypeStampDuty, totals.StampDuty)
	}
	payable := writeMoa(details, model.AmountTypePayable, totals.Payable)
	if inv.TotalInWords != "" {
		desc := payable.CreateElement("AmountDescription")
		desc.CreateAttr("lang", "fr")
		desc.SetText(inv.TotalInWords)
	}
}

func (b *Builder) writeInvoiceTax(body *etree.Element, totals *tax.Totals) {
	section := body.CreateElement("InvoiceTax")
	for _, group := range totals.PerRate {
		details := section.CreateElement("InvoiceTaxDetails")
		taxElem := details.CreateElement("Tax")
		name := taxElem.CreateElement("TaxTypeName")
		name.CreateAttr("code", model.TaxTypeVAT)
		name.SetText("TVA")
		taxElem.CreateElement("TaxDetails").CreateElement("TaxRate").SetText(strconv.Itoa(int(group.Rate)))

		amounts := details.CreateElement("AmountDetails")
		writeMoa(amounts, model.AmountTypeLineNet, group.Net)
		writeMoa(amounts, model.AmountTypeTotalTax, group.Tax)
	}
}

func writeMoa(parent *etree.Element, amountType string, amount decimal.Decimal) *etree.Element {
	moa := parent.CreateElement("Moa")
	moa.CreateAttr("amountTypeCode", amountType)
	moa.CreateAttr("currencyCodeList", CurrencyCodeList)
	amt := moa.CreateElement("Amount")
	amt.CreateAttr("currencyIdentifier", model.CurrencyTND)
	amt.SetText(dec.Format(amount))
	return moa
}

func writeDate(dtm *etree.Element, functionCode string, t time.Time) {
	d := dtm.CreateElement("DateText")
	d.CreateAttr("format", DateFormatAttr)
	d.CreateAttr("functionCode", functionCode)
	d.SetText(t.Format(dateLayout))
}

func writeDateRange(dtm *etree.Element, functionCode string, from, to time.Time) {
	d := dtm.CreateElement("DateText")
	d.CreateAttr("format", DateFormatAttr+rangeSeparator+DateFormatAttr)
	d.CreateAttr("functionCode", functionCode)
	d.SetText(from.Format(dateLayout) + rangeSeparator + to.Format(dateLayout))
}

