package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is a captured log record
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records for assertions. Handlers derived
// with WithAttrs share the same store and carry their preset attributes.
type BufferedSlogHandler struct {
	store  *recordStore
	preset []slog.Attr
	t      testing.TB
}

// NewBufferedSlogHandler creates a new buffered handler for testing
func NewBufferedSlogHandler(t testing.TB) *BufferedSlogHandler {
	return &BufferedSlogHandler{store: &recordStore{}, t: t}
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.preset)+r.NumAttrs())
	for _, a := range h.preset {
		attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// Enabled implements slog.Handler
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	preset := make([]slog.Attr, 0, len(h.preset)+len(attrs))
	preset = append(preset, h.preset...)
	preset = append(preset, attrs...)
	return &BufferedSlogHandler{store: h.store, preset: preset, t: h.t}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (h *BufferedSlogHandler) WithGroup(string) slog.Handler {
	return h
}

// Records returns a copy of all captured records
func (h *BufferedSlogHandler) Records() []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	records := make([]LogRecord, len(h.store.records))
	copy(records, h.store.records)
	return records
}

// RecordsByLevel returns captured records at level
func (h *BufferedSlogHandler) RecordsByLevel(level slog.Level) []LogRecord {
	var filtered []LogRecord
	for _, r := range h.Records() {
		if r.Level == level {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ContainsAttr reports whether any record carries key=value
func (h *BufferedSlogHandler) ContainsAttr(key string, value any) bool {
	for _, r := range h.Records() {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// ContainsText reports whether s appears in any message or string attribute
func (h *BufferedSlogHandler) ContainsText(s string) bool {
	for _, r := range h.Records() {
		if strings.Contains(r.Message, s) {
			return true
		}
		for _, v := range r.Attrs {
			if str, ok := v.(string); ok && strings.Contains(str, s) {
				return true
			}
		}
	}
	return false
}

// Count returns the number of captured records
func (h *BufferedSlogHandler) Count() int {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return len(h.store.records)
}

// NewTestLogger creates a logger backed by a buffered handler
func NewTestLogger(t testing.TB) (*slog.Logger, *BufferedSlogHandler) {
	handler := NewBufferedSlogHandler(t)
	return slog.New(handler), handler
}

// AssertLogAttr fails the test unless some record carries key=expected
func AssertLogAttr(t testing.TB, handler *BufferedSlogHandler, key string, expected any) {
	t.Helper()

	if !handler.ContainsAttr(key, expected) {
		t.Errorf("Expected log attribute not found: %s=%v", key, expected)
		for _, r := range handler.Records() {
			t.Logf("  - %s: %v", r.Message, r.Attrs)
		}
	}
}
