package gains

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumpsift/pkg/contracts/domain"
)

func salesTable(rows ...[]string) *domain.Table {
	return &domain.Table{
		Headers: []string{"ASSET NAME", "RECEIVED DATE", "COST BASIS(USD)", "DATE SOLD", "PROCEEDS"},
		Rows:    rows,
	}
}

func TestCalculator_Compute(t *testing.T) {
	calc := NewCalculator(nil)

	table := salesTable(
		[]string{"AAPL", "2020-01-01", "100.00", "2021-01-01", "150.00"},
		[]string{"TSLA", "2020-06-01", "200.00", "2020-12-01", "250.00"},
	)

	result := calc.Compute(table)

	require.Equal(t, []string{
		"ASSET NAME", "RECEIVED DATE", "COST BASIS(USD)", "DATE SOLD", "PROCEEDS",
		"gain", "days_held", "long_term",
	}, result.Headers)
	require.Len(t, result.Rows, 2)

	// 2020 is a leap year, so a full year held spans 366 days.
	assert.Equal(t,
		[]string{"AAPL", "2020-01-01", "100.00", "2021-01-01", "150.00", "50.00", "366", "true"},
		result.Rows[0])
	assert.Equal(t,
		[]string{"TSLA", "2020-06-01", "200.00", "2020-12-01", "250.00", "50.00", "183", "false"},
		result.Rows[1])
}

func TestCalculator_Compute_LongTermBoundary(t *testing.T) {
	calc := NewCalculator(nil)

	table := salesTable(
		// Exactly 365 days held: strictly short term.
		[]string{"EXACT", "2019-01-01", "100.00", "2020-01-01", "110.00"},
		// One day past the threshold.
		[]string{"OVER", "2019-01-01", "100.00", "2020-01-02", "110.00"},
		// Same-day flip.
		[]string{"FLIP", "2020-03-10", "100.00", "2020-03-10", "90.00"},
	)

	result := calc.Compute(table)
	require.Len(t, result.Rows, 3)

	assert.Equal(t, []string{"10.00", "365", "false"}, result.Rows[0][5:])
	assert.Equal(t, []string{"10.00", "366", "true"}, result.Rows[1][5:])
	assert.Equal(t, []string{"-10.00", "0", "false"}, result.Rows[2][5:])
}

func TestCalculator_Compute_MissingColumnsPassthrough(t *testing.T) {
	calc := NewCalculator(nil)

	table := &domain.Table{
		Headers: []string{"ASSET NAME", "PROCEEDS"},
		Rows:    [][]string{{"AAPL", "150.00"}},
	}

	result := calc.Compute(table)

	assert.Same(t, table, result)
	assert.False(t, result.HasColumns("gain"))
	assert.Equal(t, [][]string{{"AAPL", "150.00"}}, result.Rows)
}

func TestCalculator_Compute_DropsUnparseableRows(t *testing.T) {
	calc := NewCalculator(nil)

	table := salesTable(
		[]string{"AAPL", "2020-01-01", "100.00", "2021-01-01", "150.00"},
		[]string{"TSLA", "invalid-date", "invalid", "2020-12-01", "250.00"},
		[]string{"MSFT", "2020-02-01", "not-a-number", "2021-02-05", "400.00"},
		[]string{"NVDA", "2020-02-01", "300.00", "2021-02-05", ""},
	)

	result := calc.Compute(table)

	require.Len(t, result.Rows, 1)
	assert.Equal(t, "AAPL", result.Rows[0][0])
}

func TestCalculator_Compute_MoneyFormats(t *testing.T) {
	calc := NewCalculator(nil)

	table := salesTable(
		[]string{"FMT", "2020-01-01", "$1,000.00", "2021-06-01", "$1,500.50"},
		[]string{"NEG", "2020-01-01", "(100.00)", "2020-02-01", "50.00"},
	)

	result := calc.Compute(table)
	require.Len(t, result.Rows, 2)

	assert.Equal(t, "500.50", result.Rows[0][5])
	// Negative cost basis: proceeds minus (-100) is 150.
	assert.Equal(t, "150.00", result.Rows[1][5])
}

func TestCalculator_Compute_EmptyTable(t *testing.T) {
	calc := NewCalculator(nil)

	result := calc.Compute(salesTable())
	assert.Len(t, result.Rows, 0)
	assert.True(t, result.HasColumns("gain", "days_held", "long_term"))
}

func TestCalculator_GenerateReport(t *testing.T) {
	calc := NewCalculator(nil)
	dir := t.TempDir()

	salesPath := filepath.Join(dir, "robinhood_sales.csv")
	salesCSV := "ASSET NAME,RECEIVED DATE,COST BASIS(USD),DATE SOLD,PROCEEDS\n" +
		"AAPL,2020-01-01,100.00,2021-01-01,150.00\n" +
		"TSLA,2020-06-01,200.00,2020-12-01,250.00\n"
	require.NoError(t, os.WriteFile(salesPath, []byte(salesCSV), 0644))

	reportPath := filepath.Join(dir, domain.GainsSummaryFileName)
	summary, err := calc.GenerateReport(salesPath, reportPath)
	require.NoError(t, err)
	require.Len(t, summary.Rows, 2)

	content, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Equal(t,
		"ASSET NAME,RECEIVED DATE,COST BASIS(USD),DATE SOLD,PROCEEDS,gain,days_held,long_term\n"+
			"AAPL,2020-01-01,100.00,2021-01-01,150.00,50.00,366,true\n"+
			"TSLA,2020-06-01,200.00,2020-12-01,250.00,50.00,183,false\n",
		string(content))
}

func TestCalculator_GenerateReport_MissingSalesFile(t *testing.T) {
	calc := NewCalculator(nil)
	dir := t.TempDir()

	_, err := calc.GenerateReport(
		filepath.Join(dir, "missing.csv"),
		filepath.Join(dir, "out.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.csv")
}

func TestCalculator_FromCSV(t *testing.T) {
	calc := NewCalculator(nil)
	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path,
		[]byte("A,B\n1,2\n3,4\n"), 0644))

	table, err := calc.FromCSV(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, table.Headers)
	assert.Equal(t, [][]string{{"1", "2"}, {"3", "4"}}, table.Rows)
}
