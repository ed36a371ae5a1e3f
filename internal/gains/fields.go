package gains

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// numericRegex validates a money value after cleanup. Matches integers,
// decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// dateLayouts are tried in order. ISO layouts first; brokerage exports use
// them almost exclusively. Two-digit-year forms are deliberately absent, an
// ambiguous year in tax data should drop the row rather than guess.
var dateLayouts = []string{
	"2006-01-02", "2006/01/02", "2006.01.02",
	"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
	"Jan 2, 2006", "2 Jan 2006",
	"20060102",
}

// parseDate parses a date cell against the supported layouts.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseMoney parses a money cell. Handles currency symbols, thousands
// separators, and accounting format (parentheses for negative).
func parseMoney(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if negative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
