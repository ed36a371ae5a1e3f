// Package gains derives a capital-gains summary from a materialized
// brokerage sales table. Each row gains three computed columns: the realized
// gain, the holding period in days, and whether the position qualifies as
// long term.
package gains

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"dumpsift/internal/exporter"
	"dumpsift/pkg/contracts/domain"
)

// Required source columns, matched against the header text exactly.
const (
	ColAssetName    = "ASSET NAME"
	ColReceivedDate = "RECEIVED DATE"
	ColCostBasis    = "COST BASIS(USD)"
	ColDateSold     = "DATE SOLD"
	ColProceeds     = "PROCEEDS"
)

// Columns appended by the computation.
const (
	ColGain     = "gain"
	ColDaysHeld = "days_held"
	ColLongTerm = "long_term"
)

// longTermThresholdDays is the holding period that must be exceeded,
// strictly, for a sale to count as long term. Exactly 365 days is short term.
const longTermThresholdDays = 365

// RequiredColumns lists the source columns the computation needs, in source
// order.
func RequiredColumns() []string {
	return []string{ColAssetName, ColReceivedDate, ColCostBasis, ColDateSold, ColProceeds}
}

// Calculator computes capital-gains summaries from sales tables.
type Calculator struct {
	logger *slog.Logger
	csv    *exporter.CSVWriter
}

// NewCalculator creates a Calculator logging through the given logger.
func NewCalculator(logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		logger: logger,
		csv:    exporter.NewCSVWriter(logger),
	}
}

// Compute returns a new table extending every parseable row with gain,
// days_held, and long_term columns. A table missing any required column is
// returned unchanged. Rows whose dates or amounts do not parse are dropped.
func (c *Calculator) Compute(table *domain.Table) *domain.Table {
	if !table.HasColumns(RequiredColumns()...) {
		c.logger.Warn("sales table missing required columns, passing through unchanged",
			slog.Any("headers", table.Headers))
		return table
	}

	receivedIdx, _ := table.ColumnIndex(ColReceivedDate)
	soldIdx, _ := table.ColumnIndex(ColDateSold)
	costIdx, _ := table.ColumnIndex(ColCostBasis)
	proceedsIdx, _ := table.ColumnIndex(ColProceeds)

	headers := make([]string, 0, len(table.Headers)+3)
	headers = append(headers, table.Headers...)
	headers = append(headers, ColGain, ColDaysHeld, ColLongTerm)

	rows := make([][]string, 0, len(table.Rows))
	dropped := 0
	for _, row := range table.Rows {
		if len(row) != len(table.Headers) {
			dropped++
			continue
		}
		received, ok := parseDate(row[receivedIdx])
		if !ok {
			dropped++
			continue
		}
		sold, ok := parseDate(row[soldIdx])
		if !ok {
			dropped++
			continue
		}
		cost, ok := parseMoney(row[costIdx])
		if !ok {
			dropped++
			continue
		}
		proceeds, ok := parseMoney(row[proceedsIdx])
		if !ok {
			dropped++
			continue
		}

		gain := proceeds.Sub(cost)
		daysHeld := int(sold.Sub(received) / (24 * time.Hour))
		longTerm := daysHeld > longTermThresholdDays

		out := make([]string, 0, len(row)+3)
		out = append(out, row...)
		out = append(out,
			gain.StringFixed(2),
			strconv.Itoa(daysHeld),
			strconv.FormatBool(longTerm))
		rows = append(rows, out)
	}

	c.logger.Info("capital gains computed",
		slog.Int("rows", len(rows)),
		slog.Int("dropped", dropped))
	return &domain.Table{Headers: headers, Rows: rows}
}

// FromCSV loads a materialized sales export. The file is comma-delimited
// with the header in the first row.
func (c *Calculator) FromCSV(path string) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening sales export %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading sales export %s: %w", path, err)
	}
	if len(records) == 0 {
		return &domain.Table{}, nil
	}
	return &domain.Table{Headers: records[0], Rows: records[1:]}, nil
}

// WriteReport persists a computed summary as CSV.
func (c *Calculator) WriteReport(table *domain.Table, path string) error {
	err := c.csv.WriteSimpleCSV(path, table.Headers, table.Rows)
	if err != nil {
		return fmt.Errorf("writing gains report: %w", err)
	}
	return nil
}

// GenerateReport loads the sales export at salesPath, computes the summary,
// and writes it to reportPath. Returns the computed table.
func (c *Calculator) GenerateReport(salesPath, reportPath string) (*domain.Table, error) {
	table, err := c.FromCSV(salesPath)
	if err != nil {
		return nil, err
	}
	summary := c.Compute(table)
	if err := c.WriteReport(summary, reportPath); err != nil {
		return nil, err
	}
	c.logger.Info("gains report written",
		slog.String("path", reportPath),
		slog.Int("rows", summary.RowCount()))
	return summary, nil
}
