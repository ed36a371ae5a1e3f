package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// LogRecord is one captured log entry with its attrs flattened into a
// map. Grouped attrs use dotted keys ("paths.base").
type LogRecord struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logCore is the record store shared by every handler derived through
// WithAttrs or WithGroup. Assertions on the root handler therefore see
// records written through derived loggers too.
type logCore struct {
	mu      sync.Mutex
	records []LogRecord
	t       *testing.T
}

func (c *logCore) add(rec LogRecord) {
	c.mu.Lock()
	c.records = append(c.records, rec)
	t := c.t
	c.mu.Unlock()

	// Mirror into the test log so failures show what was captured.
	if t != nil {
		t.Logf("[%s] %s %v", rec.Level, rec.Message, rec.Attrs)
	}
}

func (c *logCore) snapshot() []LogRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]LogRecord, len(c.records))
	copy(out, c.records)
	return out
}

// BufferedSlogHandler is a slog.Handler that buffers records in memory
// for test assertions.
type BufferedSlogHandler struct {
	core   *logCore
	attrs  []slog.Attr
	groups []string
}

// NewBufferedSlogHandler returns an empty handler. Records are mirrored
// to t.Logf when t is non-nil.
func NewBufferedSlogHandler(t *testing.T) *BufferedSlogHandler {
	return &BufferedSlogHandler{core: &logCore{t: t}}
}

// NewTestLogger returns a logger and the handler backing it.
func NewTestLogger(t *testing.T) (*slog.Logger, *BufferedSlogHandler) {
	handler := NewBufferedSlogHandler(t)
	return slog.New(handler), handler
}

// Enabled reports true for every level; tests want everything.
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool { return true }

// Handle flattens the record and the handler's bound attrs into the
// shared store.
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, r.NumAttrs()+len(h.attrs))
	for _, a := range h.attrs {
		attrs[h.qualify(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.qualify(a.Key)] = a.Value.Any()
		return true
	})

	h.core.add(LogRecord{Time: r.Time, Level: r.Level, Message: r.Message, Attrs: attrs})
	return nil
}

func (h *BufferedSlogHandler) qualify(key string) string {
	if len(h.groups) == 0 {
		return key
	}
	return strings.Join(h.groups, ".") + "." + key
}

// WithAttrs derives a handler with extra bound attrs on the same store.
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &BufferedSlogHandler{core: h.core, attrs: merged, groups: h.groups}
}

// WithGroup derives a handler whose attrs get a dotted key prefix.
func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	groups = append(groups, name)
	return &BufferedSlogHandler{core: h.core, attrs: h.attrs, groups: groups}
}

// GetRecords returns a copy of everything captured so far.
func (h *BufferedSlogHandler) GetRecords() []LogRecord {
	return h.core.snapshot()
}

// GetRecordsByLevel returns the records captured at exactly the given
// level.
func (h *BufferedSlogHandler) GetRecordsByLevel(level slog.Level) []LogRecord {
	var out []LogRecord
	for _, r := range h.core.snapshot() {
		if r.Level == level {
			out = append(out, r)
		}
	}
	return out
}

// ContainsMessage reports whether any captured message contains the
// substring.
func (h *BufferedSlogHandler) ContainsMessage(message string) bool {
	for _, r := range h.core.snapshot() {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries key with exactly the
// given value.
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.core.snapshot() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// Clear drops all captured records.
func (h *BufferedSlogHandler) Clear() {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	h.core.records = h.core.records[:0]
}

// Count returns the number of captured records.
func (h *BufferedSlogHandler) Count() int {
	h.core.mu.Lock()
	defer h.core.mu.Unlock()
	return len(h.core.records)
}

// AssertLogContains fails the test unless a record at the given level
// contains the message.
func AssertLogContains(t *testing.T, handler *BufferedSlogHandler, level slog.Level, message string) {
	t.Helper()

	records := handler.GetRecordsByLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}

	t.Errorf("log message not found at level %s: %q", level, message)
	for _, r := range records {
		t.Logf("  captured: %s", r.Message)
	}
}

// AssertLogAttr fails the test unless some record carries key=value.
func AssertLogAttr(t *testing.T, handler *BufferedSlogHandler, key string, expectedValue any) {
	t.Helper()

	if handler.ContainsAttr(key, expectedValue) {
		return
	}

	t.Errorf("log attribute not found: %s=%v", key, expectedValue)
	for _, r := range handler.GetRecords() {
		t.Logf("  captured: %s %v", r.Message, r.Attrs)
	}
}

// AssertNoErrors fails the test if anything was logged at error level.
func AssertNoErrors(t *testing.T, handler *BufferedSlogHandler) {
	t.Helper()

	for _, r := range handler.GetRecordsByLevel(slog.LevelError) {
		t.Errorf("unexpected error log: %s %v", r.Message, r.Attrs)
	}
}
