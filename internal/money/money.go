// Package money parses amount cells from the extracts. Upstream sometimes
// exports plain numbers and sometimes currency strings like "Currency(11, 12)"
// or "$1,234.56"; both must land on the same value.
package money

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyNoise = regexp.MustCompile(`[A-Za-z()\s$]`)

// ParseAmount converts an amount cell to a float64. Empty cells parse to 0.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	cleaned := currencyNoise.ReplaceAllString(s, "")
	if cleaned == "" {
		return 0, fmt.Errorf("amount %q has no numeric content", s)
	}

	// "1,234.56" carries thousands separators; "11,12" is a comma decimal.
	if strings.Contains(cleaned, ",") {
		if strings.Contains(cleaned, ".") {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		} else {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("amount %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}
