package gains

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"iso", "2020-01-01", "2020-01-01", true},
		{"iso slashes", "2020/06/15", "2020-06-15", true},
		{"iso dots", "2020.06.15", "2020-06-15", true},
		{"us slashes", "6/15/2020", "2020-06-15", true},
		{"us slashes padded", "06/15/2020", "2020-06-15", true},
		{"us dashes", "6-15-2020", "2020-06-15", true},
		{"month name", "Jan 2, 2021", "2021-01-02", true},
		{"day first month name", "2 Jan 2021", "2021-01-02", true},
		{"compact", "20200615", "2020-06-15", true},
		{"surrounding whitespace", "  2020-01-01  ", "2020-01-01", true},
		{"two digit year rejected", "6/15/20", "", false},
		{"garbage", "invalid-date", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.Format(time.DateOnly))
			}
		})
	}
}

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain", "150.00", "150", true},
		{"integer", "42", "42", true},
		{"dollar sign", "$1234.56", "1234.56", true},
		{"thousands separators", "1,234,567.89", "1234567.89", true},
		{"dollar and separators", "$1,000.50", "1000.5", true},
		{"accounting negative", "(100.00)", "-100", true},
		{"accounting with symbol", "($2,500.00)", "-2500", true},
		{"euro symbol", "€99.95", "99.95", true},
		{"pound symbol", "£50", "50", true},
		{"explicit plus", "+1.5", "1.5", true},
		{"leading dot", ".5", "0.5", true},
		{"scientific", "1.5e3", "1500", true},
		{"whitespace", "  250.00  ", "250", true},
		{"empty", "", "", false},
		{"words", "invalid", "", false},
		{"double dot", "1.2.3", "", false},
		{"lone minus", "-", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseMoney(tt.input)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got.String())
			}
		})
	}
}
