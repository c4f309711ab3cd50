package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLine(t *testing.T, line string) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v\n%s", err, line)
	}
	return entry
}

func TestLoggerEmitsJSONWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(DEBUG, &buf)

	logger.Info("session established",
		String("sessionHandle", "sh-1"),
		Int("attempt", 2),
		Bool("recreated", true),
		Duration("elapsed", 1500*time.Millisecond),
	)

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["message"] != "session established" {
		t.Errorf("message = %v", entry["message"])
	}
	if entry["sessionHandle"] != "sh-1" {
		t.Errorf("sessionHandle = %v", entry["sessionHandle"])
	}
	if entry["attempt"] != float64(2) {
		t.Errorf("attempt = %v", entry["attempt"])
	}
	if entry["recreated"] != true {
		t.Errorf("recreated = %v", entry["recreated"])
	}
	if entry["elapsed"] != "1.5s" {
		t.Errorf("elapsed = %v", entry["elapsed"])
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp missing")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WARN, &buf)

	logger.Debug("dropped")
	logger.Info("dropped")
	logger.Warn("kept")
	logger.Error("kept")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("emitted %d lines, want 2:\n%s", len(lines), buf.String())
	}
}

func TestLoggerWithFieldsPropagates(t *testing.T) {
	var buf bytes.Buffer
	logger := New(INFO, &buf).WithFields(String("component", "session"))

	logger.Info("hello", String("extra", "x"))

	entry := decodeLine(t, strings.TrimSpace(buf.String()))
	if entry["component"] != "session" {
		t.Errorf("component = %v, want session", entry["component"])
	}
	if entry["extra"] != "x" {
		t.Errorf("extra = %v, want x", entry["extra"])
	}
}

func TestLoggerRedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := New(INFO, &buf)

	logger.Info("auth", String("password", "hunter2"), String("Token", "abc"))

	out := buf.String()
	if strings.Contains(out, "hunter2") || strings.Contains(out, "abc") {
		t.Fatalf("sensitive values leaked: %s", out)
	}
	entry := decodeLine(t, strings.TrimSpace(out))
	if entry["password"] != "[REDACTED]" {
		t.Errorf("password = %v, want [REDACTED]", entry["password"])
	}
}

func TestErrField(t *testing.T) {
	var buf bytes.Buffer
	logger := New(INFO, &buf)

	logger.Error("failed", Err(errors.New("boom")))
	logger.Error("no cause", Err(nil))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	first := decodeLine(t, lines[0])
	if first["error"] != "boom" {
		t.Errorf("error = %v, want boom", first["error"])
	}
	second := decodeLine(t, lines[1])
	if second["error"] != nil {
		t.Errorf("error = %v, want null", second["error"])
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{" warn ", WARN},
		{"WARNING", WARN},
		{"Error", ERROR},
		{"nonsense", INFO},
		{"", INFO},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Info("dropped")
	logger.WithFields(String("k", "v")).Error("dropped too")
}
