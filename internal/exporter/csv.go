package exporter

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// utf8BOM is the byte order mark Excel needs to detect UTF-8 CSVs.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVWriter writes comma-delimited files. All exports go through it so the
// on-disk format stays uniform regardless of what a section's source
// delimiter was.
type CSVWriter struct {
	logger *slog.Logger
}

// NewCSVWriter creates a CSV writer logging through the given logger.
func NewCSVWriter(logger *slog.Logger) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger}
}

// WriteOptions describes one CSV write. Headers are only emitted on a
// fresh file, never on an append.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool
}

func (o WriteOptions) openFlags() int {
	if o.Append {
		return os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	return os.O_CREATE | os.O_WRONLY | os.O_TRUNC
}

// WriteCSV writes data to the file at path with the given options, creating
// the parent directory if needed.
func (w *CSVWriter) WriteCSV(path string, options WriteOptions) error {
	w.logger.Debug("writing csv file",
		slog.String("path", path),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}

	file, err := os.OpenFile(path, options.openFlags(), 0644)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	// Appends must not repeat the BOM mid-file.
	if options.BOMPrefix && !options.Append {
		if _, err := file.Write(utf8BOM); err != nil {
			return fmt.Errorf("writing BOM to %s: %w", path, err)
		}
	}

	rows := options.Records
	if !options.Append && len(options.Headers) > 0 {
		rows = append([][]string{options.Headers}, rows...)
	}

	if err := csv.NewWriter(file).WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows to %s: %w", path, err)
	}
	return nil
}

// WriteSimpleCSV writes headers plus records to path, replacing any existing
// file.
func (w *CSVWriter) WriteSimpleCSV(path string, headers []string, records [][]string) error {
	return w.WriteCSV(path, WriteOptions{
		Headers: headers,
		Records: records,
	})
}

// AppendToCSV appends records to an existing CSV file without touching its
// header.
func (w *CSVWriter) AppendToCSV(path string, records [][]string) error {
	return w.WriteCSV(path, WriteOptions{
		Records: records,
		Append:  true,
	})
}
