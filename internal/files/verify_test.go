package files

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumpsift/pkg/contracts/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeOutput(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestExpected(t *testing.T) {
	tests := []struct {
		name         string
		kinds        []domain.SectionKind
		gainsWritten bool
		want         []string
	}{
		{
			name:  "tabular and structured kinds in appearance order",
			kinds: []domain.SectionKind{domain.KindScriptableJS, domain.KindRobinhoodSales},
			want:  []string{"scriptable_js.json", "robinhood_sales.csv"},
		},
		{
			name:         "gains summary appended last",
			kinds:        []domain.SectionKind{domain.KindRobinhoodSales},
			gainsWritten: true,
			want:         []string{"robinhood_sales.csv", "robinhood_gains_summary.csv"},
		},
		{
			name:  "empty set implies nothing",
			kinds: nil,
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := domain.NewSectionSet()
			for _, kind := range tt.kinds {
				set.GetOrCreate(kind)
			}
			got := Expected(set, tt.gainsWritten)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpected_NilSet(t *testing.T) {
	assert.Nil(t, Expected(nil, true))
}

func TestVerify_AllPresent(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, "robinhood_sales.csv", "symbol,cost\nAAPL,100\n")
	writeOutput(t, dir, "logic_app_json.json", "{}\n")

	report, err := NewVerifier(discardLogger()).Verify(dir, []string{"robinhood_sales.csv", "logic_app_json.json"})
	require.NoError(t, err)

	assert.True(t, report.OK())
	assert.NoError(t, report.Err())
	assert.Len(t, report.Checks, 2)
	assert.Empty(t, report.Missing())
	assert.Empty(t, report.Empty())
	assert.Empty(t, report.Extra)

	for _, check := range report.Checks {
		assert.Equal(t, StatusPresent, check.Status)
		assert.Greater(t, check.Size, int64(0))
		assert.Equal(t, filepath.Join(dir, check.Name), check.Path)
	}
}

func TestVerify_ClassifiesMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, "robinhood_sales.csv", "symbol\n")
	writeOutput(t, dir, "crypto_movements.csv", "")

	expected := []string{"robinhood_sales.csv", "crypto_movements.csv", "btc_daily_prices.csv"}
	report, err := NewVerifier(discardLogger()).Verify(dir, expected)
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []string{"crypto_movements.csv"}, report.Empty())
	assert.Equal(t, []string{"btc_daily_prices.csv"}, report.Missing())

	err = report.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing btc_daily_prices.csv")
	assert.Contains(t, err.Error(), "empty crypto_movements.csv")
	assert.Contains(t, err.Error(), dir)
}

func TestVerify_ReportsExtras(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, "robinhood_sales.csv", "symbol\n")
	writeOutput(t, dir, "notes.txt", "scratch")
	writeOutput(t, dir, "backup.csv", "old")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0755))

	report, err := NewVerifier(discardLogger()).Verify(dir, []string{"robinhood_sales.csv"})
	require.NoError(t, err)

	assert.True(t, report.OK(), "extras alone must not fail verification")
	require.Len(t, report.Extra, 2)
	assert.Equal(t, "backup.csv", report.Extra[0].Name)
	assert.Equal(t, "notes.txt", report.Extra[1].Name)
	assert.Equal(t, int64(3), report.Extra[0].Size)
}

func TestVerify_MissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")

	report, err := NewVerifier(discardLogger()).Verify(dir, []string{"robinhood_sales.csv"})
	require.NoError(t, err)

	assert.False(t, report.OK())
	assert.Equal(t, []string{"robinhood_sales.csv"}, report.Missing())
}

func TestVerify_MissingDirectoryNoExpectations(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "never-created")

	report, err := NewVerifier(discardLogger()).Verify(dir, nil)
	require.NoError(t, err)
	assert.True(t, report.OK(), "a run with zero sections has nothing to verify")
}

func TestVerify_NilLoggerDefaults(t *testing.T) {
	v := NewVerifier(nil)
	require.NotNil(t, v)

	report, err := v.Verify(t.TempDir(), nil)
	require.NoError(t, err)
	assert.True(t, report.OK())
}

func TestReport_Summary(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, "robinhood_sales.csv", "symbol\n")
	writeOutput(t, dir, "crypto_movements.csv", "")
	writeOutput(t, dir, "stray.log", "x")

	expected := []string{"robinhood_sales.csv", "crypto_movements.csv", "btc_daily_prices.csv"}
	report, err := NewVerifier(discardLogger()).Verify(dir, expected)
	require.NoError(t, err)

	summary := report.Summary()
	assert.Equal(t, 3, summary.Checked)
	assert.Equal(t, []string{"btc_daily_prices.csv"}, summary.Missing)
	assert.Equal(t, []string{"crypto_movements.csv"}, summary.Empty)
	assert.Equal(t, []string{"stray.log"}, summary.Extra)
}

func TestReport_String(t *testing.T) {
	dir := t.TempDir()
	writeOutput(t, dir, "robinhood_sales.csv", "symbol\n")
	writeOutput(t, dir, "stray.log", "x")

	report, err := NewVerifier(discardLogger()).Verify(dir, []string{"robinhood_sales.csv", "btc_daily_prices.csv"})
	require.NoError(t, err)

	out := report.String()
	assert.Contains(t, out, "ok       robinhood_sales.csv (7 bytes)")
	assert.Contains(t, out, "MISSING  btc_daily_prices.csv")
	assert.Contains(t, out, "extra    stray.log (1 bytes)")
}
