// Package amount parses monetary text from extracted statements into exact
// decimal values. Statement PDFs mix US and European separators, accounting
// parentheses, and stray currency symbols, so parsing is deliberately lenient
// about formatting and strict about the resulting number.
package amount

import (
	"errors"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ErrMalformed indicates the text holds no parseable monetary value.
var ErrMalformed = errors.New("malformed amount")

var currencyTokens = []string{"$", "€", "£", "R$", "USD", "EUR", "GBP"}

// Parse converts raw amount text into a decimal value.
// Accepted forms: "1,234.56", "1.234,56", "(500.00)", "$12,000", "1234.5-".
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrMalformed
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	// Trailing minus shows up in some ledger exports.
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrMalformed
	}

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrMalformed
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites the number into dot-decimal form.
// When both separators appear, the last one is the decimal separator.
func normalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// European: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			// US: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		// A lone comma with exactly two trailing digits reads as a decimal
		// separator; anything else is a thousands separator.
		idx := strings.LastIndex(s, ",")
		if len(s)-idx-1 == 2 {
			s = strings.ReplaceAll(s[:idx], ",", "") + "." + s[idx+1:]
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	}
	return s
}

// FormatUSD renders a decimal value as a US-dollar display string for
// review-flag messages and workbook cells.
func FormatUSD(d decimal.Decimal) string {
	cents := d.Mul(decimal.New(1, 2)).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}

// IsRoundThousand reports whether the value ends in an even thousand with
// zero cents, a common sign of an estimated rather than booked figure.
func IsRoundThousand(d decimal.Decimal) bool {
	if !d.Equal(d.Truncate(0)) {
		return false
	}
	if d.IsZero() {
		return false
	}
	return d.Abs().Mod(decimal.NewFromInt(1000)).IsZero()
}
