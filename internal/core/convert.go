package core

// convert.go coerces raw spreadsheet cells into draft field values.
//
// Cells arrive in whatever shape the school office typed them: currency
// symbols, thousands separators, Excel formula prefixes, stray quotes.
// Nothing here fails; unusable input collapses to a zero value and the
// normalizer's pre-filter drops the row.

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, an Excel formula prefix (="...") and surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(strings.Trim(s, `"'`))
}

// ParseAmount keeps only digits, '.' and '-' and parses the remainder.
// Empty or non-numeric input yields zero.
//
//	ParseAmount("$1,000.00") // 1000
//	ParseAmount("1,000")     // 1000
//	ParseAmount("n/a")       // 0
func ParseAmount(s string) decimal.Decimal {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}

// normalizeKey lower-cases and trims a value for alias lookups.
func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
