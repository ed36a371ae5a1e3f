package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"dumpsift/pkg/contracts/domain"
)

// WriteWorkbook writes every tabular section of the set into one XLSX
// workbook, one sheet per section kind. Sections that fail to parse are
// skipped; they are already reported by the CSV materialization. Returns the
// written path, or "" when the set has no usable tabular section.
func (m *Materializer) WriteWorkbook(set *domain.SectionSet, path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("creating output directory for %s: %w", path, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := 0
	for _, sec := range set.Sections() {
		if sec.Kind.Format() != domain.FormatCSV {
			continue
		}
		table, err := m.ParseTable(sec)
		if err != nil {
			m.logger.Warn("skipping section in workbook",
				slog.String("kind", string(sec.Kind)),
				slog.String("error", err.Error()))
			continue
		}

		sheet := string(sec.Kind)
		if sheets == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
				return "", fmt.Errorf("naming sheet %s: %w", sheet, err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return "", fmt.Errorf("adding sheet %s: %w", sheet, err)
			}
		}
		sheets++

		if err := writeSheet(f, sheet, table); err != nil {
			return "", err
		}
	}

	if sheets == 0 {
		m.logger.Debug("no tabular sections, workbook not written")
		return "", nil
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving workbook %s: %w", path, err)
	}
	m.logger.Info("workbook written",
		slog.String("path", path),
		slog.Int("sheets", sheets))
	return path, nil
}

func writeSheet(f *excelize.File, sheet string, table *domain.Table) error {
	if err := f.SetSheetRow(sheet, "A1", &table.Headers); err != nil {
		return fmt.Errorf("writing %s header row: %w", sheet, err)
	}
	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet, i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
