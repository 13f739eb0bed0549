package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// --- Logging Tests ---

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Output: &buf})

	WithSessionID(logger, "abc").Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
	}
	if entry["session_id"] != "abc" {
		t.Errorf("expected session_id=abc, got %v", entry["session_id"])
	}
}

func TestNewLogger_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Format: "text", Level: "WARN", Output: &buf})

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("info message should be filtered at WARN level")
	}
	if !strings.Contains(out, "msg=shown") {
		t.Errorf("expected text format, got %q", out)
	}
}

func TestFromContext(t *testing.T) {
	logger := NewLogger(LogConfig{Output: &bytes.Buffer{}})
	ctx := WithLogger(context.Background(), logger)

	if FromContext(ctx) != logger {
		t.Error("FromContext should return stored logger")
	}
	if FromContext(context.Background()) != slog.Default() {
		t.Error("FromContext should fall back to default logger")
	}
}

// --- Metrics Tests ---

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveTransition("READY")
	m.ObserveFailure("run", "TRANSPORT")
	m.ObserveRequest("upload", "ok", time.Second)
	m.ObserveDecodedRows(3)
}

func TestMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveTransition("READY")
	m.ObserveTransition("READY")
	m.ObserveFailure("submit", "REJECTED")
	m.ObserveDecodedRows(5)
	m.ObserveRequest("analyze", "ok", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.Transitions.WithLabelValues("READY")); got != 2 {
		t.Errorf("expected 2 READY transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.Failures.WithLabelValues("submit", "REJECTED")); got != 1 {
		t.Errorf("expected 1 failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.DecodedRows); got != 5 {
		t.Errorf("expected 5 decoded rows, got %v", got)
	}
	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("expected 1 histogram series, got %d", got)
	}
}
