package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "warn", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("hook overflow", "dropped", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record, got %d: %q", len(lines), buf.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if record["msg"] != "hook overflow" || record["dropped"] != float64(3) {
		t.Fatalf("unexpected record: %v", record)
	}
	if ts, _ := record["time"].(string); !strings.HasSuffix(ts, "Z") {
		t.Fatalf("expected UTC RFC3339 time, got %v", record["time"])
	}
}

func TestNewConsoleDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "error", Format: "text", Output: &buf, Debug: true})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("raw event", "kind", "key_down")
	out := buf.String()
	if !strings.Contains(out, "msg=\"raw event\"") || !strings.Contains(out, "source=") {
		t.Fatalf("expected debug record with source, got %q", out)
	}
}

func TestNewRejectsUnknownSettings(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatalf("expected level error")
	}
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatalf("expected format error")
	}
}
