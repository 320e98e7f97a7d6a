package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(42), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.level.String(); got != tt.expected {
				t.Errorf("Level.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"DEBUG", DebugLevel},
		{"debug", DebugLevel},
		{" Info ", InfoLevel},
		{"WARN", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"", InfoLevel},
		{"verbose", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDomainFields(t *testing.T) {
	tests := []struct {
		field Field
		key   string
		value any
	}{
		{DiagramID("d1"), "diagram_id", "d1"},
		{NodeID("threat_1"), "node_id", "threat_1"},
		{EdgeID("e_1"), "edge_id", "e_1"},
		{Kind("barrier"), "kind", "barrier"},
		{Component("engine"), "component", "engine"},
		{Count(3), "count", 3},
		{Duration("latency", 2*time.Second), "latency", "2s"},
		{Error(errors.New("boom")), "error", "boom"},
		{Error(nil), "error", nil},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if tt.field.Key != tt.key {
				t.Errorf("Key = %q, want %q", tt.field.Key, tt.key)
			}
			if tt.field.Value != tt.value {
				t.Errorf("Value = %v, want %v", tt.field.Value, tt.value)
			}
		})
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("report computed", NodeID("center_1"), Float64("residual", 21))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "report computed" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Fields["node_id"] != "center_1" {
		t.Errorf("Fields[node_id] = %v", entry.Fields["node_id"])
	}
	if entry.Fields["residual"] != float64(21) {
		t.Errorf("Fields[residual] = %v", entry.Fields["residual"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log entries, got %d: %q", len(lines), buf.String())
	}

	var first LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if first.Level != "WARN" {
		t.Errorf("First entry level = %v, want WARN", first.Level)
	}

	logger.SetLevel(DebugLevel)
	if logger.GetLevel() != DebugLevel {
		t.Errorf("GetLevel() = %v after SetLevel(DEBUG)", logger.GetLevel())
	}
}

func TestJSONLogger_With(t *testing.T) {
	var buf bytes.Buffer
	parent := NewJSONLogger(&buf, InfoLevel)
	child := parent.With(Component("engine"), DiagramID("d-42"))

	child.Info("pass complete", Operation("threats"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for key, want := range map[string]string{
		"component":  "engine",
		"diagram_id": "d-42",
		"operation":  "threats",
	} {
		if entry.Fields[key] != want {
			t.Errorf("Fields[%s] = %v, want %v", key, entry.Fields[key], want)
		}
	}

	buf.Reset()
	parent.Info("no inherited fields")
	var plain LogEntry
	if err := json.Unmarshal(buf.Bytes(), &plain); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if len(plain.Fields) != 0 {
		t.Errorf("parent picked up child fields: %v", plain.Fields)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	timer := StartTimer(logger, "compute", DiagramID("d1"))
	elapsed := timer.End(Count(7))
	if elapsed < 0 {
		t.Errorf("elapsed = %v", elapsed)
	}

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Level != "DEBUG" {
		t.Errorf("Level = %v, want DEBUG", entry.Level)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Error("latency field missing")
	}
	if entry.Fields["count"] != float64(7) {
		t.Errorf("count = %v", entry.Fields["count"])
	}

	buf.Reset()
	StartTimer(logger, "save").EndError(errors.New("disk full"))
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("EndError output missing cause: %s", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored")
	if logger.With(Count(1)) == nil {
		t.Error("NopLogger.With returned nil")
	}
	if logger.GetLevel() != InfoLevel {
		t.Errorf("GetLevel() = %v", logger.GetLevel())
	}
}

func TestSetDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := DefaultLogger()
	defer SetDefaultLogger(prev)

	SetDefaultLogger(NewJSONLogger(&buf, InfoLevel))
	Info("hello", Path("/tmp/x.json"))
	Warn("careful")
	ErrorLog("failed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 lines, got %d", len(lines))
	}
}
