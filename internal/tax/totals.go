// Package tax computes per-rate subtotals and document totals for TEIF
// invoices with exact decimal semantics: line amounts are computed at
// full precision and rounded half-up to millimes at the reportable
// boundary, then summed without intermediate re-rounding.
package tax

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	dec "github.com/tnvoice/elfatoora/internal/decimal"
	"github.com/tnvoice/elfatoora/internal/model"
)

// LineAmounts carries the derived amounts for one invoice line.
type LineAmounts struct {
	Number int
	Rate   model.VATRate
	Net    decimal.Decimal
	Tax    decimal.Decimal
}

// RateSummary is the aggregate for one VAT rate group. A zero rate is a
// real group, not an absence.
type RateSummary struct {
	Rate model.VATRate
	Net  decimal.Decimal
	Tax  decimal.Decimal
}

// Totals is the computed amount block for a whole invoice. Inputs are
// never written back; callers read everything from here.
type Totals struct {
	Lines     []LineAmounts
	PerRate   []RateSummary
	Net       decimal.Decimal
	Tax       decimal.Decimal
	Gross     decimal.Decimal
	StampDuty decimal.Decimal
	Payable   decimal.Decimal
}

// Compute derives line amounts, per-rate subtotals, and document totals
// for the invoice. Lines with a rate outside the national set fail fast;
// they should have been rejected by validation before reaching here.
func Compute(inv *model.Invoice) (*Totals, error) {
	if inv == nil || len(inv.Lines) == 0 {
		return nil, model.NewDomainError(model.ErrCodeTaxCalculation, "lines",
			"cannot compute totals without invoice lines", nil)
	}

	t := &Totals{
		Lines:     make([]LineAmounts, 0, len(inv.Lines)),
		Net:       dec.Zero,
		Tax:       dec.Zero,
		StampDuty: inv.StampDuty,
	}
	byRate := make(map[model.VATRate]*RateSummary)

	for _, line := range inv.Lines {
		if !line.TaxRate.IsValid() {
			return nil, model.NewDomainError(model.ErrCodeInvalidTaxRate,
				fmt.Sprintf("lines[%d].taxRate", line.Number),
				fmt.Sprintf("unsupported VAT rate %d%%", int(line.TaxRate)), nil)
		}

		net := dec.LineNet(line.Quantity, line.UnitPrice)
		taxAmt := dec.TaxAmount(net, int(line.TaxRate))

		t.Lines = append(t.Lines, LineAmounts{
			Number: line.Number,
			Rate:   line.TaxRate,
			Net:    net,
			Tax:    taxAmt,
		})

		group, ok := byRate[line.TaxRate]
		if !ok {
			group = &RateSummary{Rate: line.TaxRate, Net: dec.Zero, Tax: dec.Zero}
			byRate[line.TaxRate] = group
		}
		group.Net = group.Net.Add(net)
		group.Tax = group.Tax.Add(taxAmt)

		t.Net = t.Net.Add(net)
		t.Tax = t.Tax.Add(taxAmt)
	}

	// Deterministic group order: ascending rate.
	t.PerRate = make([]RateSummary, 0, len(byRate))
	for _, g := range byRate {
		t.PerRate = append(t.PerRate, *g)
	}
	sort.Slice(t.PerRate, func(i, j int) bool { return t.PerRate[i].Rate < t.PerRate[j].Rate })

	t.Gross = t.Net.Add(t.Tax)
	t.Payable = t.Gross.Add(t.StampDuty)
	return t, nil
}

// ForLine returns the computed amounts for the given line number.
func (t *Totals) ForLine(number int) (LineAmounts, bool) {
	for _, la := range t.Lines {
		if la.Number == number {
			return la, true
		}
	}
	return LineAmounts{}, false
}
