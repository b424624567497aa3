package tax_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/tnvoice/elfatoora/internal/tax"
)

func TestAmountInWords(t *testing.T) {
	tests := []struct {
		amount   string
		expected string
	}{
		{"0.000", "zéro dinar, zéro millime"},
		{"1.000", "un dinar, zéro millime"},
		{"1.001", "un dinar, un millime"},
		{"2.500", "deux dinars, cinq cents millimes"},
		{"21.000", "vingt et un dinars, zéro millime"},
		{"71.000", "soixante et onze dinars, zéro millime"},
		{"80.000", "quatre-vingts dinars, zéro millime"},
		{"81.000", "quatre-vingt-un dinars, zéro millime"},
		{"99.000", "quatre-vingt-dix-neuf dinars, zéro millime"},
		{"100.000", "cent dinars, zéro millime"},
		{"200.000", "deux cents dinars, zéro millime"},
		{"250.000", "deux cent cinquante dinars, zéro millime"},
		{"280.000", "deux cent quatre-vingts dinars, zéro millime"},
		{"283.000", "deux cent quatre-vingt-trois dinars, zéro millime"},
		{"1000.000", "mille dinars, zéro millime"},
		{"1560.000", "mille cinq cent soixante dinars, zéro millime"},
		// "vingt" and "cent" stay singular before "mille" but keep the
		// plural before "millions".
		{"80000.000", "quatre-vingt mille dinars, zéro millime"},
		{"200000.000", "deux cent mille dinars, zéro millime"},
		{"2000000.000", "deux millions dinars, zéro millime"},
		{"80000000.000", "quatre-vingts millions dinars, zéro millime"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			assert.Equal(t, tt.expected, tax.AmountInWords(amount))
		})
	}
}

func TestMatchesTotalInWords(t *testing.T) {
	payable := decimal.RequireFromString("1560.000")

	assert.True(t, tax.MatchesTotalInWords("mille cinq cent soixante dinars, zéro millime", payable))
	// Case, hyphens, and spacing are normalized.
	assert.True(t, tax.MatchesTotalInWords("Mille Cinq Cent Soixante Dinars, Zéro Millime", payable))
	// Empty input skips the check.
	assert.True(t, tax.MatchesTotalInWords("", payable))

	assert.False(t, tax.MatchesTotalInWords("mille dinars, zéro millime", payable))
}
