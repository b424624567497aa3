package decimal_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dec "github.com/tnvoice/elfatoora/internal/decimal"
)

func TestLineNet(t *testing.T) {
	tests := []struct {
		name      string
		quantity  string
		unitPrice string
		expected  string
	}{
		{"whole numbers", "10", "50", "500.000"},
		{"millime precision", "1", "0.001", "0.001"},
		{"rounds half up", "3", "0.3335", "1.001"},
		{"fractional quantity", "2.5", "10.100", "25.250"},
		{"zero quantity", "0", "99.999", "0.000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qty := dec.MustFromString(tt.quantity)
			price := dec.MustFromString(tt.unitPrice)
			assert.Equal(t, tt.expected, dec.Format(dec.LineNet(qty, price)))
		})
	}
}

func TestTaxAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		rate     int
		expected string
	}{
		{"19 percent", "500", 19, "95.000"},
		{"13 percent", "500", 13, "65.000"},
		{"7 percent", "100", 7, "7.000"},
		{"zero rate", "400", 0, "0.000"},
		{"rounds half up at millime", "0.025", 19, "0.005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount := dec.MustFromString(tt.amount)
			assert.Equal(t, tt.expected, dec.Format(dec.TaxAmount(amount, tt.rate)))
		})
	}
}

func TestRoundTND(t *testing.T) {
	// Half-up at the third decimal.
	assert.Equal(t, "1.001", dec.Format(dec.RoundTND(dec.MustFromString("1.0005"))))
	assert.Equal(t, "1.000", dec.Format(dec.RoundTND(dec.MustFromString("1.0004"))))
}

func TestSum(t *testing.T) {
	sum := dec.Sum([]decimal.Decimal{
		dec.MustFromString("500.000"),
		dec.MustFromString("500.000"),
		dec.MustFromString("400.000"),
	})
	assert.Equal(t, "1400.000", dec.Format(sum))
}

func TestFromString_Invalid(t *testing.T) {
	_, err := dec.FromString("not-a-number")
	require.Error(t, err)
}
