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
		{"debug", DebugLevel},
		{"INFO", InfoLevel},
		{"warning", WarnLevel},
		{"ERROR", ErrorLevel},
		{"invalid", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestWorkflowFields(t *testing.T) {
	if f := NodeID("0:4:2"); f.Key != "node_id" || f.Value != "0:4:2" {
		t.Errorf("NodeID() = %+v", f)
	}
	if f := Workflow("0:4"); f.Key != "workflow" || f.Value != "0:4" {
		t.Errorf("Workflow() = %+v", f)
	}
	if f := Pass("forward"); f.Key != "pass" || f.Value != "forward" {
		t.Errorf("Pass() = %+v", f)
	}
	if f := Error(nil); f.Value != nil {
		t.Errorf("Error(nil) = %+v", f)
	}
	if f := Error(errors.New("boom")); f.Value != "boom" {
		t.Errorf("Error() = %+v", f)
	}
	if f := Latency(1500 * time.Millisecond); f.Value != "1.5s" {
		t.Errorf("Latency() = %+v", f)
	}
}

func TestJSONLogger_BasicLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	logger.Info("tracker updated", NodeID("0:1"), Count(3))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal log entry: %v", err)
	}

	if entry.Level != "INFO" {
		t.Errorf("Level = %v, want INFO", entry.Level)
	}
	if entry.Message != "tracker updated" {
		t.Errorf("Message = %v", entry.Message)
	}
	if entry.Fields["node_id"] != "0:1" {
		t.Errorf("Fields[node_id] = %v", entry.Fields["node_id"])
	}
	if entry.Fields["count"] != float64(3) {
		t.Errorf("Fields[count] = %v", entry.Fields["count"])
	}
	if entry.Time == "" {
		t.Error("Time field is empty")
	}
}

func TestJSONLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, WarnLevel)

	logger.Debug("debug message")
	logger.Info("info message")
	if buf.Len() != 0 {
		t.Fatalf("debug/info should be filtered, got %q", buf.String())
	}

	logger.Warn("warn message")
	logger.Error("error message")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 entries, got %d", len(lines))
	}
}

func TestJSONLogger_WithSharesFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	child := logger.With(Component("scope"), Workflow("0"))
	child.Info("pass done", Pass("backward"))

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	for key, want := range map[string]string{"component": "scope", "workflow": "0", "pass": "backward"} {
		if entry.Fields[key] != want {
			t.Errorf("Fields[%s] = %v, want %s", key, entry.Fields[key], want)
		}
	}

	// Fields passed at the call site win over pre-set ones
	buf.Reset()
	child.Info("override", Component("tracker"))
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Fields["component"] != "tracker" {
		t.Errorf("component = %v, want tracker", entry.Fields["component"])
	}
}

func TestJSONLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	logger.Debug("hidden")
	logger.SetLevel(DebugLevel)
	if logger.GetLevel() != DebugLevel {
		t.Fatalf("GetLevel() = %v", logger.GetLevel())
	}
	logger.Debug("visible")

	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "visible") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestTextLogger_SortedKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTextLogger(&buf, InfoLevel)

	logger.Warn("scope error", ScopeError("Missing End Node."), NodeID("0:3"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " WARN  scope error ") {
		t.Errorf("missing level/message in %q", line)
	}
	if !strings.HasSuffix(line, `node_id=0:3 scope_error="Missing End Node."`) {
		t.Errorf("fields not sorted or quoted: %q", line)
	}
}

func TestTimedOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, DebugLevel)

	timer := StartTimer(logger, "forward pass", Pass("forward"))
	if d := timer.End(Visited(5)); d < 0 {
		t.Errorf("negative duration %v", d)
	}

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Level != "DEBUG" || entry.Fields["visited"] != float64(5) {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if _, ok := entry.Fields["latency"]; !ok {
		t.Error("latency field missing")
	}

	buf.Reset()
	timer.EndError(errors.New("budget exhausted"))
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if entry.Level != "ERROR" || entry.Fields["error"] != "budget exhausted" {
		t.Errorf("unexpected entry: %+v", entry)
	}
}

func TestGlobalHelperFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefaultLogger(NewJSONLogger(&buf, DebugLevel))
	defer SetDefaultLogger(NewNopLogger())

	Debug("debug msg")
	Info("info msg")
	Warn("warn msg")
	ErrorLog("error msg")
	With(Component("manager")).Info("child")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 log entries, got %d", len(lines))
	}

	levels := []string{"DEBUG", "INFO", "WARN", "ERROR", "INFO"}
	for i, expectedLevel := range levels {
		var entry LogEntry
		if err := json.Unmarshal([]byte(lines[i]), &entry); err != nil {
			t.Fatalf("Failed to unmarshal entry %d: %v", i, err)
		}
		if entry.Level != expectedLevel {
			t.Errorf("Entry %d level = %v, want %v", i, entry.Level, expectedLevel)
		}
	}
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Info("ignored")
	if logger.With(Count(1)) == nil {
		t.Error("With should return a logger")
	}
	if logger.GetLevel() != InfoLevel {
		t.Errorf("GetLevel() = %v", logger.GetLevel())
	}
}

func BenchmarkJSONLogger_Info(b *testing.B) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, InfoLevel)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info("pass done", Pass("forward"), Visited(42))
	}
}
