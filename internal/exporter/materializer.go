package exporter

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apierrors "dumpsift/internal/errors"
	"dumpsift/pkg/contracts/domain"
)

// delimiterCandidates are the separators considered when sniffing a tabular
// header, in tie-break priority order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// DetectDelimiter picks the most frequent candidate separator in the header
// line. An ambiguous or separator-free header falls back to comma.
func DetectDelimiter(header string) rune {
	best := ','
	bestCount := 0
	for _, cand := range delimiterCandidates {
		if n := strings.Count(header, string(cand)); n > bestCount {
			best, bestCount = cand, n
		}
	}
	return best
}

// Materializer persists recognized sections as clean files: structured
// sections as pretty-printed JSON documents, tabular sections as
// comma-delimited CSV regardless of source delimiter.
type Materializer struct {
	csv    *CSVWriter
	logger *slog.Logger

	// BOM prefixes tabular outputs with a UTF-8 byte order mark. Off by
	// default; re-runs must stay byte-identical to prior outputs.
	BOM bool
}

// NewMaterializer creates a materializer logging through the given logger.
func NewMaterializer(logger *slog.Logger) *Materializer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Materializer{
		csv:    NewCSVWriter(logger),
		logger: logger,
	}
}

// WriteSection writes one section under dir and returns the written file
// path. The directory is created if missing. Structured sections never fail
// on malformed content; tabular sections fail when their rows cannot be
// parsed against the header.
func (m *Materializer) WriteSection(sec *domain.Section, dir string) (string, error) {
	if sec == nil || sec.LineCount() == 0 {
		return "", fmt.Errorf("empty section")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating output directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, sec.Kind.OutputFileName())
	m.logger.Info("materializing section",
		slog.String("kind", string(sec.Kind)),
		slog.String("format", string(sec.Kind.Format())),
		slog.Int("lines", sec.LineCount()),
		slog.String("path", path))

	switch sec.Kind.Format() {
	case domain.FormatJSON:
		if err := m.writeJSON(sec, path); err != nil {
			return "", err
		}
	default:
		if err := m.writeCSV(sec, path); err != nil {
			return "", err
		}
	}
	return path, nil
}

// writeJSON pretty-prints the section when it parses as a JSON document and
// falls back to the verbatim captured text when it does not.
func (m *Materializer) writeJSON(sec *domain.Section, path string) error {
	raw := sec.Text()

	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		m.logger.Warn("section is not valid JSON, writing verbatim",
			slog.String("kind", string(sec.Kind)),
			slog.String("error", err.Error()))
		if werr := os.WriteFile(path, []byte(raw), 0644); werr != nil {
			return fmt.Errorf("writing %s: %w", path, werr)
		}
		return nil
	}

	pretty, err := json.MarshalIndent(parsed, "", "  ")
	if err != nil {
		return fmt.Errorf("formatting %s document: %w", sec.Kind, err)
	}
	if err := os.WriteFile(path, pretty, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// writeCSV re-encodes a tabular section as comma-delimited CSV.
func (m *Materializer) writeCSV(sec *domain.Section, path string) error {
	table, err := m.ParseTable(sec)
	if err != nil {
		return err
	}

	err = m.csv.WriteCSV(path, WriteOptions{
		Headers:   table.Headers,
		Records:   table.Rows,
		BOMPrefix: m.BOM,
	})
	if err != nil {
		return apierrors.NewStorageError(fmt.Sprintf("writing %s section", sec.Kind), err)
	}
	return nil
}

// ParseTable parses a tabular section's captured lines into a table using
// the delimiter sniffed from its header. Blank separator lines inside the
// capture are skipped; rows whose field count disagrees with the header fail
// the whole section.
func (m *Materializer) ParseTable(sec *domain.Section) (*domain.Table, error) {
	delimiter := DetectDelimiter(sec.Header())

	reader := csv.NewReader(strings.NewReader(sec.Text()))
	reader.Comma = delimiter

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apierrors.NewSectionError(string(sec.Kind), err)
	}
	if len(records) == 0 {
		return nil, apierrors.NewSectionError(string(sec.Kind), errors.New("no header row"))
	}

	return &domain.Table{Headers: records[0], Rows: records[1:]}, nil
}
