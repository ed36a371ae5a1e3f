package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dumpsift/pkg/contracts/domain"
)

// Paths contains the resolved application paths. This is the single source
// of truth for every location the service writes to.
type Paths struct {
	BaseDir   string
	DataDir   string
	OutputDir string
	LogsDir   string
}

// ResolvePaths resolves the configured path entries into absolute paths.
// Relative entries are anchored at BaseDir; an empty BaseDir means the
// working directory.
func (c *Config) ResolvePaths() (*Paths, error) {
	base := c.Paths.BaseDir
	if base == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		base = wd
	}
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base directory %s: %w", c.Paths.BaseDir, err)
	}

	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:   base,
		DataDir:   resolve(c.Paths.DataDir),
		OutputDir: resolve(c.Paths.OutputDir),
		LogsDir:   resolve(c.Paths.LogsDir),
	}, nil
}

// EnsureDirectories creates every directory the service writes to.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.DataDir, p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// RunDir returns the output directory for one split run.
func (p *Paths) RunDir(runID string) string {
	return filepath.Join(p.OutputDir, runID)
}

// GainsSummaryPath returns the gains report location inside a run directory.
func (p *Paths) GainsSummaryPath(runID string) string {
	return filepath.Join(p.RunDir(runID), domain.GainsSummaryFileName)
}

// GetLogPath anchors a log file name in the logs directory.
func (p *Paths) GetLogPath(filename string) string {
	return filepath.Join(p.LogsDir, filename)
}

// LogPathResolution logs the resolved locations for debugging.
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("output", p.OutputDir),
			slog.String("logs", p.LogsDir),
		))
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
