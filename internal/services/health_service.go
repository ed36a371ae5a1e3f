package services

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"dumpsift/internal/config"
	"dumpsift/internal/infrastructure"
)

// HealthService answers the health, readiness, liveness, and version
// endpoints from process state and the configured paths.
type HealthService struct {
	version     string
	buildTime   string
	environment string
	paths       *config.Paths
	collector   *infrastructure.SystemMetricsCollector
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus is the response shape shared by the health endpoints.
type HealthStatus struct {
	Status      string         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
	Version     string         `json:"version"`
	Environment string         `json:"environment,omitempty"`
	Runtime     map[string]any `json:"runtime,omitempty"`
	Services    map[string]any `json:"services,omitempty"`
}

// ServiceHealth reports one dependency's readiness.
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// OutputStats summarizes what lives under the output root.
type OutputStats struct {
	Files      int   `json:"files"`
	TotalBytes int64 `json:"total_bytes"`
}

// NewHealthService creates the health service. The collector may be nil;
// stats then fall back to a direct runtime snapshot.
func NewHealthService(version, buildTime string, paths *config.Paths, collector *infrastructure.SystemMetricsCollector, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	environment := os.Getenv("ENVIRONMENT")
	if environment == "" {
		environment = "development"
	}

	logger.Info("health service initialized",
		slog.String("version", version),
		slog.String("environment", environment))

	return &HealthService{
		version:     version,
		buildTime:   buildTime,
		environment: environment,
		paths:       paths,
		collector:   collector,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HealthCheck reports overall service health.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:      "ok",
		Timestamp:   time.Now(),
		Version:     hs.version,
		Environment: hs.environment,
		Runtime:     hs.runtimeSnapshot(),
	}
}

// ReadinessCheck probes the directories the service writes to. The service
// is not ready until both the data and output roots are usable.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	checks := map[string]ServiceHealth{
		"data_dir":   hs.checkDir(hs.paths.DataDir),
		"output_dir": hs.checkDir(hs.paths.OutputDir),
	}

	overall := "ready"
	services := make(map[string]any, len(checks))
	for name, check := range checks {
		services[name] = check
		if check.Status != "ready" {
			overall = "not_ready"
		}
	}

	if overall != "ready" {
		hs.logger.WarnContext(ctx, "readiness check failed",
			slog.Any("services", services))
	}

	return HealthStatus{
		Status:    overall,
		Timestamp: time.Now(),
		Version:   hs.version,
		Services:  services,
	}
}

// LivenessCheck reports that the process is running.
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   hs.runtimeSnapshot(),
	}
}

// Version returns build and runtime version information.
func (hs *HealthService) Version() map[string]any {
	info := map[string]any{
		"version":      hs.version,
		"environment":  hs.environment,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		info["build_time"] = hs.buildTime
	}
	return info
}

// Stats reports process statistics and a summary of the output root.
func (hs *HealthService) Stats(ctx context.Context) map[string]any {
	var process any
	if hs.collector != nil {
		process = hs.collector.GetCurrentStats(ctx).FormatStats()
	} else {
		process = hs.runtimeSnapshot()
	}

	return map[string]any{
		"output":  hs.outputStats(),
		"process": process,
	}
}

func (hs *HealthService) runtimeSnapshot() map[string]any {
	return map[string]any{
		"go_version":     runtime.Version(),
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": time.Since(hs.startTime).Seconds(),
	}
}

// checkDir probes a directory by creating it if missing. Failure means the
// path is either unwritable or shadowed by a file.
func (hs *HealthService) checkDir(dir string) ServiceHealth {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}

// outputStats walks the output root counting files. Walk errors skip the
// entry; a missing root reports zero files.
func (hs *HealthService) outputStats() OutputStats {
	var stats OutputStats
	filepath.WalkDir(hs.paths.OutputDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || entry.IsDir() {
			return nil
		}
		if info, err := entry.Info(); err == nil {
			stats.Files++
			stats.TotalBytes += info.Size()
		}
		return nil
	})
	return stats
}
