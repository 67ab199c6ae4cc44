package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func captureLogs(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(Config{Level: level, Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "info", Format: "json"}) })
	return &buf
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("decode log line %q: %v", lines[len(lines)-1], err)
	}
	return m
}

func TestCtxAddsIDs(t *testing.T) {
	buf := captureLogs(t, "info")

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	Ctx(ctx).Info().Msg("hello")

	line := lastLine(t, buf)
	if line["request_id"] != "req-1" {
		t.Errorf("request_id = %v, want req-1", line["request_id"])
	}
	if line["correlation_id"] != "corr-1" {
		t.Errorf("correlation_id = %v, want corr-1", line["correlation_id"])
	}
	if line["message"] != "hello" {
		t.Errorf("message = %v, want hello", line["message"])
	}
}

func TestLevelFiltering(t *testing.T) {
	buf := captureLogs(t, "warn")

	Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}

	Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn line missing: %q", buf.String())
	}
}

func TestSlogAdapter(t *testing.T) {
	buf := captureLogs(t, "debug")

	logger := NewSlogLogger().WithGroup("supervisor")
	logger.Info("service restarted", "service", "http-server", "attempt", 2)

	line := lastLine(t, buf)
	if line["supervisor.service"] != "http-server" {
		t.Errorf("supervisor.service = %v", line["supervisor.service"])
	}
	if line["supervisor.attempt"] != float64(2) {
		t.Errorf("supervisor.attempt = %v", line["supervisor.attempt"])
	}
}

func TestGeneratedIDs(t *testing.T) {
	if got := len(GenerateCorrelationID()); got != 8 {
		t.Errorf("correlation id length = %d, want 8", got)
	}
	if GenerateRequestID() == GenerateRequestID() {
		t.Error("request ids should be unique")
	}
}
