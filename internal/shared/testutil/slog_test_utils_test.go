package testutil

import (
	"log/slog"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures log records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("test message", slog.String("key", "value"))
		logger.Error("error message", slog.Int("code", 500))

		if handler.Count() != 2 {
			t.Errorf("Expected 2 records, got %d", handler.Count())
		}
		if !handler.ContainsText("test message") {
			t.Error("Expected to find 'test message'")
		}
		if !handler.ContainsAttr("key", "value") {
			t.Error("Expected to find attribute key=value")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")

		if n := len(handler.RecordsByLevel(slog.LevelInfo)); n != 1 {
			t.Errorf("Expected 1 info record, got %d", n)
		}
		if n := len(handler.RecordsByLevel(slog.LevelError)); n != 0 {
			t.Errorf("Expected 0 error records, got %d", n)
		}
	})

	t.Run("keeps attributes from With", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.With(slog.String("component", "license")).Info("scoped")
		logger.Info("unscoped")

		records := handler.Records()
		if len(records) != 2 {
			t.Fatalf("Expected 2 records, got %d", len(records))
		}
		if records[0].Attrs["component"] != "license" {
			t.Errorf("Expected component=license on scoped record, got %v", records[0].Attrs)
		}
		if _, ok := records[1].Attrs["component"]; ok {
			t.Errorf("Unexpected component on unscoped record: %v", records[1].Attrs)
		}
	})

	t.Run("finds text in attribute values", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("rejected", slog.String("license_key_masked", "B782****168A"))

		if !handler.ContainsText("****") {
			t.Error("Expected to find masked key text")
		}
		if handler.ContainsText("FF80") {
			t.Error("Unexpected unmasked key text")
		}
	})
}
