package files

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apierrors "dumpsift/internal/errors"
	"dumpsift/pkg/contracts/domain"
)

// Status classifies one expected output file after a split run.
type Status string

const (
	StatusPresent Status = "present"
	StatusMissing Status = "missing"
	StatusEmpty   Status = "empty"
)

// FileInfo describes one file found in an output directory.
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Check is the verification result for a single expected file.
type Check struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Status Status `json:"status"`
	Size   int64  `json:"size"`
}

// Report aggregates the per-file checks for one output directory. Extra
// lists files found in the directory that no expectation covers.
type Report struct {
	Dir    string     `json:"dir"`
	Checks []Check    `json:"checks"`
	Extra  []FileInfo `json:"extra,omitempty"`
}

// Missing returns the names of expected files absent from the directory.
func (r *Report) Missing() []string {
	return r.names(StatusMissing)
}

// Empty returns the names of expected files present but zero bytes long.
func (r *Report) Empty() []string {
	return r.names(StatusEmpty)
}

func (r *Report) names(status Status) []string {
	var out []string
	for _, c := range r.Checks {
		if c.Status == status {
			out = append(out, c.Name)
		}
	}
	return out
}

// OK reports whether every expected file is present with content.
func (r *Report) OK() bool {
	for _, c := range r.Checks {
		if c.Status != StatusPresent {
			return false
		}
	}
	return true
}

// Err converts a failed verification into an error naming the offending
// files, or nil when the report is clean.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	var parts []string
	if missing := r.Missing(); len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if empty := r.Empty(); len(empty) > 0 {
		parts = append(parts, "empty "+strings.Join(empty, ", "))
	}
	return fmt.Errorf("output verification failed in %s: %s", r.Dir, strings.Join(parts, "; "))
}

// Summary condenses the report into the wire shape carried on run results.
func (r *Report) Summary() *domain.VerificationSummary {
	s := &domain.VerificationSummary{
		Checked: len(r.Checks),
		Missing: r.Missing(),
		Empty:   r.Empty(),
	}
	for _, extra := range r.Extra {
		s.Extra = append(s.Extra, extra.Name)
	}
	return s
}

// String renders the report one file per line for console output.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "verification of %s:\n", r.Dir)
	for _, c := range r.Checks {
		switch c.Status {
		case StatusPresent:
			fmt.Fprintf(&b, "  ok       %s (%d bytes)\n", c.Name, c.Size)
		case StatusEmpty:
			fmt.Fprintf(&b, "  EMPTY    %s\n", c.Name)
		default:
			fmt.Fprintf(&b, "  MISSING  %s\n", c.Name)
		}
	}
	for _, extra := range r.Extra {
		fmt.Fprintf(&b, "  extra    %s (%d bytes)\n", extra.Name, extra.Size)
	}
	return b.String()
}

// Expected derives the output file names a section set implies, in first
// appearance order. The gains summary is appended when the run wrote one.
func Expected(set *domain.SectionSet, gainsWritten bool) []string {
	if set == nil {
		return nil
	}
	names := make([]string, 0, set.Len()+1)
	for _, kind := range set.Kinds() {
		names = append(names, kind.OutputFileName())
	}
	if gainsWritten {
		names = append(names, domain.GainsSummaryFileName)
	}
	return names
}

// Verifier checks that a split run left the files its section set implies
// on disk.
type Verifier struct {
	logger *slog.Logger
}

// NewVerifier creates a verifier logging through the given logger.
func NewVerifier(logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{logger: logger}
}

// Verify stats each expected file under dir and classifies it as present,
// missing, or empty. Files nobody expected are reported as extras. A missing
// directory counts every expectation as missing; any other read failure is
// returned as an error.
func (v *Verifier) Verify(dir string, expected []string) (*Report, error) {
	report := &Report{Dir: dir}

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, apierrors.NewStorageError("reading output directory "+dir, err)
	}

	found := make(map[string]FileInfo, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found[entry.Name()] = FileInfo{
			Path:    filepath.Join(dir, entry.Name()),
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		}
	}

	expectedNames := make(map[string]bool, len(expected))
	for _, name := range expected {
		expectedNames[name] = true
		check := Check{
			Name:   name,
			Path:   filepath.Join(dir, name),
			Status: StatusMissing,
		}
		if info, ok := found[name]; ok {
			check.Size = info.Size
			check.Status = StatusPresent
			if info.Size == 0 {
				check.Status = StatusEmpty
			}
		}
		report.Checks = append(report.Checks, check)
	}

	for name, info := range found {
		if !expectedNames[name] {
			report.Extra = append(report.Extra, info)
		}
	}
	sort.Slice(report.Extra, func(i, j int) bool {
		return report.Extra[i].Name < report.Extra[j].Name
	})

	v.logger.Info("verified split outputs",
		slog.String("dir", dir),
		slog.Int("expected", len(expected)),
		slog.Int("missing", len(report.Missing())),
		slog.Int("empty", len(report.Empty())),
		slog.Int("extra", len(report.Extra)))

	return report, nil
}
