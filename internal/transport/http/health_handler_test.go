package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dumpsift/internal/config"
	"dumpsift/internal/services"
)

func newTestHealthHandler(t *testing.T) (*HealthHandler, *config.Paths) {
	t.Helper()

	base := t.TempDir()
	paths := &config.Paths{
		BaseDir:   base,
		DataDir:   filepath.Join(base, "data"),
		OutputDir: filepath.Join(base, "output"),
		LogsDir:   filepath.Join(base, "logs"),
	}
	require.NoError(t, paths.EnsureDirectories())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := services.NewHealthService("1.2.3", "2026-08-25T10:00:00Z", paths, nil, logger)
	return NewHealthHandler(svc, logger), paths
}

func TestDescriptorEndpoint(t *testing.T) {
	handler, _ := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	handler.Descriptor(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "dumpsift", body["service"])
	assert.Equal(t, "1.2.3", body["version"])

	endpoints, ok := body["endpoints"].([]interface{})
	require.True(t, ok)
	assert.Len(t, endpoints, 8)
	assert.Contains(t, endpoints, "POST /api/split")
}

func TestHealthCheckEndpoint(t *testing.T) {
	handler, _ := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()

	handler.HealthCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "1.2.3", body["version"])

	rt, ok := body["runtime"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, rt, "go_version")
}

func TestReadinessCheckEndpoint(t *testing.T) {
	handler, _ := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	handler.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ready", body["status"])
}

func TestReadinessCheckEndpointNotReady(t *testing.T) {
	base := t.TempDir()
	paths := &config.Paths{
		BaseDir:   base,
		DataDir:   filepath.Join(base, "data"),
		OutputDir: filepath.Join(base, "output"),
		LogsDir:   filepath.Join(base, "logs"),
	}
	// A file where the output directory should be makes the probe fail.
	require.NoError(t, os.WriteFile(paths.OutputDir, []byte("shadow"), 0644))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := services.NewHealthService("1.2.3", "", paths, nil, logger)
	handler := NewHealthHandler(svc, logger)

	req := httptest.NewRequest(http.MethodGet, "/api/health/ready", nil)
	rec := httptest.NewRecorder()

	handler.ReadinessCheck(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "not_ready", body["status"])
}

func TestLivenessCheckEndpoint(t *testing.T) {
	handler, _ := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health/live", nil)
	rec := httptest.NewRecorder()

	handler.LivenessCheck(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "alive", body["status"])
}

func TestVersionEndpoint(t *testing.T) {
	handler, _ := newTestHealthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/version", nil)
	rec := httptest.NewRecorder()

	handler.Version(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "1.2.3", body["version"])
	assert.Equal(t, "2026-08-25T10:00:00Z", body["build_time"])
	assert.Contains(t, body, "go_version")
	assert.Contains(t, body, "environment")
}

func TestStatsEndpoint(t *testing.T) {
	handler, paths := newTestHealthHandler(t)
	require.NoError(t, os.WriteFile(filepath.Join(paths.OutputDir, "robinhood_sales.csv"), []byte("a,b\n1,2\n"), 0644))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()

	handler.Stats(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	output, ok := body["output"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), output["files"])
	assert.Contains(t, body, "process")
}

func TestNewHealthHandlerNilService(t *testing.T) {
	assert.Panics(t, func() {
		NewHealthHandler(nil, nil)
	})
}
