// Package currency normalizes scraped price text and currency codes.
//
// Price strings on product pages are locale-ambiguous: "3.871,45" on a
// Turkish or German storefront means 3871.45. The rules here resolve that
// ambiguity in favour of the comma-decimal convention whenever a comma is
// present at all.
package currency

import (
	"strings"

	"github.com/shopspring/decimal"
)

var symbols = map[string]string{
	"TRY": "₺",
	"USD": "$",
	"EUR": "€",
}

// Symbol maps an ISO currency code to its display symbol. Unknown codes and
// strings that are already symbols pass through unchanged, so the mapping is
// idempotent.
func Symbol(code string) string {
	code = strings.TrimSpace(code)
	if s, ok := symbols[strings.ToUpper(code)]; ok {
		return s
	}
	return code
}

// Sniff detects a currency symbol embedded in free-form price text.
// Returns "" when no symbol is recognisable.
func Sniff(text string) string {
	switch {
	case strings.Contains(text, "₺"), strings.Contains(text, "TL"):
		return "₺"
	case strings.Contains(text, "€"):
		return "€"
	case strings.Contains(text, "$"):
		return "$"
	}
	return ""
}

// ParsePrice extracts a decimal value from arbitrary price text.
//
// Everything except digits, comma, period and a leading minus is stripped.
// If both separators appear, periods are thousands separators and the last
// comma is the decimal point ("3.871,45" -> 3871.45). A lone comma is a
// decimal separator ("12,99" -> 12.99). Unparseable input yields zero,
// never an error or NaN.
func ParsePrice(text string) decimal.Decimal {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ',' || r == '.' || r == '-':
			return r
		}
		return -1
	}, text)

	// keep the minus only when it leads the number
	if i := strings.IndexByte(cleaned, '-'); i >= 0 {
		body := strings.ReplaceAll(cleaned, "-", "")
		if i == 0 {
			cleaned = "-" + body
		} else {
			cleaned = body
		}
	}

	hasComma := strings.Contains(cleaned, ",")
	hasPeriod := strings.Contains(cleaned, ".")
	switch {
	case hasComma && hasPeriod:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = commaToDecimalPoint(cleaned)
	case hasComma:
		cleaned = commaToDecimalPoint(cleaned)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// commaToDecimalPoint turns the last comma into the decimal point and drops
// any earlier ones.
func commaToDecimalPoint(s string) string {
	i := strings.LastIndex(s, ",")
	if i < 0 {
		return s
	}
	return strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
}
