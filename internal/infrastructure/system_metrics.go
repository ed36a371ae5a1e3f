package infrastructure

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records Go runtime health as OTel instruments.
type SystemMetrics struct {
	goroutines metric.Int64Gauge
	heapAlloc  metric.Int64Gauge
	totalAlloc metric.Int64Gauge
	sysBytes   metric.Int64Gauge
	cpuCount   metric.Int64Gauge
	gcPause    metric.Float64Histogram
	uptime     metric.Float64Gauge
}

// NewSystemMetrics registers the runtime instruments on the meter.
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	var firstErr error
	gauge := func(name, desc, unit string) metric.Int64Gauge {
		opts := []metric.Int64GaugeOption{metric.WithDescription(desc)}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		g, err := meter.Int64Gauge(name, opts...)
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("creating %s: %w", name, err)
		}
		return g
	}

	sm := &SystemMetrics{
		goroutines: gauge("runtime_goroutines", "Number of live goroutines", ""),
		heapAlloc:  gauge("runtime_heap_alloc_bytes", "Bytes of allocated heap objects", "By"),
		totalAlloc: gauge("runtime_total_alloc_bytes", "Cumulative bytes allocated for heap objects", "By"),
		sysBytes:   gauge("runtime_sys_bytes", "Bytes of memory obtained from the OS", "By"),
		cpuCount:   gauge("runtime_cpu_count", "Logical CPUs usable by the process", ""),
	}

	var err error
	sm.gcPause, err = meter.Float64Histogram(
		"runtime_gc_pause_seconds",
		metric.WithDescription("Most recent garbage collection pause"),
		metric.WithUnit("s"),
	)
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("creating runtime_gc_pause_seconds: %w", err)
	}

	sm.uptime, err = meter.Float64Gauge(
		"process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
	)
	if err != nil && firstErr == nil {
		firstErr = fmt.Errorf("creating process_uptime_seconds: %w", err)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return sm, nil
}

// SystemStats is one sampled snapshot of the runtime.
type SystemStats struct {
	Goroutines  int64
	HeapAlloc   int64
	TotalAlloc  int64
	SysBytes    int64
	GCCount     uint32
	LastGCPause time.Duration
	CPUCount    int
	Uptime      time.Duration
	Timestamp   time.Time
}

// Collect samples the runtime, records every instrument, and returns the
// snapshot.
func (sm *SystemMetrics) Collect(ctx context.Context, startTime time.Time) *SystemStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	stats := &SystemStats{
		Goroutines:  int64(runtime.NumGoroutine()),
		HeapAlloc:   int64(mem.Alloc),
		TotalAlloc:  int64(mem.TotalAlloc),
		SysBytes:    int64(mem.Sys),
		GCCount:     mem.NumGC,
		LastGCPause: time.Duration(mem.PauseNs[(mem.NumGC+255)%256]),
		CPUCount:    runtime.NumCPU(),
		Uptime:      time.Since(startTime),
		Timestamp:   time.Now(),
	}

	sm.goroutines.Record(ctx, stats.Goroutines)
	sm.heapAlloc.Record(ctx, stats.HeapAlloc)
	sm.totalAlloc.Record(ctx, stats.TotalAlloc)
	sm.sysBytes.Record(ctx, stats.SysBytes)
	sm.cpuCount.Record(ctx, int64(stats.CPUCount))
	sm.uptime.Record(ctx, stats.Uptime.Seconds())
	if stats.LastGCPause > 0 {
		sm.gcPause.Record(ctx, stats.LastGCPause.Seconds())
	}

	return stats
}

// FormatStats renders the snapshot for the stats endpoint.
func (stats *SystemStats) FormatStats() map[string]any {
	return map[string]any{
		"runtime": map[string]any{
			"goroutines":       stats.Goroutines,
			"heap_alloc_mb":    stats.HeapAlloc / 1024 / 1024,
			"total_alloc_mb":   stats.TotalAlloc / 1024 / 1024,
			"sys_mb":           stats.SysBytes / 1024 / 1024,
			"gc_count":         stats.GCCount,
			"last_gc_pause_ms": stats.LastGCPause.Milliseconds(),
		},
		"system": map[string]any{
			"cpu_count":      stats.CPUCount,
			"uptime_seconds": stats.Uptime.Seconds(),
		},
		"timestamp": stats.Timestamp.Format(time.RFC3339),
	}
}

// SystemMetricsCollector samples the runtime on a fixed interval.
type SystemMetricsCollector struct {
	metrics   *SystemMetrics
	interval  time.Duration
	startTime time.Time
	quit      chan struct{}
}

// NewSystemMetricsCollector builds a collector sampling every interval.
func NewSystemMetricsCollector(meter metric.Meter, interval time.Duration) (*SystemMetricsCollector, error) {
	metrics, err := NewSystemMetrics(meter)
	if err != nil {
		return nil, fmt.Errorf("creating system metrics: %w", err)
	}

	return &SystemMetricsCollector{
		metrics:   metrics,
		interval:  interval,
		startTime: time.Now(),
		quit:      make(chan struct{}),
	}, nil
}

// Start samples immediately and then on every tick. Blocks until Stop or
// ctx cancellation, so run it on its own goroutine.
func (c *SystemMetricsCollector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.metrics.Collect(ctx, c.startTime)

	for {
		select {
		case <-ticker.C:
			c.metrics.Collect(ctx, c.startTime)
		case <-c.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends collection. Call at most once.
func (c *SystemMetricsCollector) Stop() {
	close(c.quit)
}

// GetCurrentStats samples the runtime immediately.
func (c *SystemMetricsCollector) GetCurrentStats(ctx context.Context) *SystemStats {
	return c.metrics.Collect(ctx, c.startTime)
}
