package tax

import (
	"strings"

	"github.com/shopspring/decimal"
)

// AmountInWords renders a TND amount in French words, the form printed
// on the invoice ("mille cinq cent soixante dinars, zéro millime").
func AmountInWords(amount decimal.Decimal) string {
	amount = amount.Round(3)
	dinars := amount.IntPart()
	millimes := amount.Sub(decimal.NewFromInt(dinars)).Mul(decimal.NewFromInt(1000)).IntPart()
	if millimes < 0 {
		millimes = -millimes
	}

	var sb strings.Builder
	if dinars < 0 {
		sb.WriteString("moins ")
		dinars = -dinars
	}
	sb.WriteString(frenchNumber(dinars))
	if dinars <= 1 {
		sb.WriteString(" dinar")
	} else {
		sb.WriteString(" dinars")
	}
	sb.WriteString(", ")
	sb.WriteString(frenchNumber(millimes))
	if millimes <= 1 {
		sb.WriteString(" millime")
	} else {
		sb.WriteString(" millimes")
	}
	return sb.String()
}

// MatchesTotalInWords reports whether a caller-supplied spelled-out
// total matches the computed payable amount. The comparison normalizes
// case, hyphens, and whitespace; a mismatch is reported to callers as a
// warning, never a validation error.
func MatchesTotalInWords(supplied string, payable decimal.Decimal) bool {
	if supplied == "" {
		return true
	}
	return normalizeWords(supplied) == normalizeWords(AmountInWords(payable))
}

func normalizeWords(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, ",", " ")
	return strings.Join(strings.Fields(s), " ")
}

var frenchUnits = []string{
	"zéro", "un", "deux", "trois", "quatre", "cinq", "six", "sept", "huit",
	"neuf", "dix", "onze", "douze", "treize", "quatorze", "quinze", "seize",
	"dix-sept", "dix-huit", "dix-neuf",
}

var frenchTens = map[int64]string{
	20: "vingt", 30: "trente", 40: "quarante", 50: "cinquante", 60: "soixante",
}

// frenchNumber spells out a non-negative integer in French, with the
// usual irregularities (soixante-dix, quatre-vingts, et-un, invariable
// mille).
func frenchNumber(n int64) string {
	return frenchSegment(n, true)
}

// frenchSegment spells n; final is false when another numeral follows
// the segment, in which case "vingt" and "cent" stay singular
// (quatre-vingt mille, deux cent cinquante).
func frenchSegment(n int64, final bool) string {
	switch {
	case n < 20:
		return frenchUnits[n]
	case n < 100:
		return frenchUnder100(n, final)
	case n < 1000:
		return frenchUnder1000(n, final)
	case n < 1_000_000:
		return frenchGroup(n, 1000, "mille", "mille", final)
	case n < 1_000_000_000:
		return frenchGroup(n, 1_000_000, "million", "millions", final)
	default:
		return frenchGroup(n, 1_000_000_000, "milliard", "milliards", final)
	}
}

func frenchUnder100(n int64, final bool) string {
	switch {
	case n < 20:
		return frenchUnits[n]
	case n < 70:
		tens, unit := (n/10)*10, n%10
		if unit == 0 {
			return frenchTens[tens]
		}
		if unit == 1 {
			return frenchTens[tens] + " et un"
		}
		return frenchTens[tens] + "-" + frenchUnits[unit]
	case n < 80:
		// 70-79 count from sixty
		if n == 71 {
			return "soixante et onze"
		}
		return "soixante-" + frenchUnits[n-60]
	case n == 80:
		if final {
			return "quatre-vingts"
		}
		return "quatre-vingt"
	default:
		// 81-99 count from eighty, no "et"
		return "quatre-vingt-" + frenchUnits[n-80]
	}
}

func frenchUnder1000(n int64, final bool) string {
	hundreds, rest := n/100, n%100
	var head string
	switch {
	case hundreds == 1:
		head = "cent"
	case rest == 0 && final:
		head = frenchUnits[hundreds] + " cents"
	default:
		head = frenchUnits[hundreds] + " cent"
	}
	if rest == 0 {
		return head
	}
	return head + " " + frenchUnder100(rest, final)
}

func frenchGroup(n, scale int64, singular, plural string, final bool) string {
	count, rest := n/scale, n%scale
	var head string
	switch {
	case scale == 1000 && count == 1:
		head = "mille" // "mille", never "un mille"
	case count == 1:
		head = "un " + singular
	case scale == 1000:
		// "mille" is itself a numeral, so the multiplier stays
		// singular: quatre-vingt mille, deux cent mille.
		head = frenchSegment(count, false) + " " + plural
	default:
		// "million" and "milliard" are nouns: quatre-vingts millions.
		head = frenchSegment(count, true) + " " + plural
	}
	if rest == 0 {
		return head
	}
	return head + " " + frenchSegment(rest, final)
}
