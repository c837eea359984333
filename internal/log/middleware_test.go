package log

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
)

func newBufferedStructuredLogger(level slog.Level) (*StructuredLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:     level,
		Component: ComponentHTTP,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level}),
	})
	return NewStructuredLogger(logger), &buf
}

func TestLogHTTPEndComponentAttachedOnce(t *testing.T) {
	sl, buf := newBufferedStructuredLogger(slog.LevelInfo)
	r := httptest.NewRequest("GET", "/api/overview", nil)

	sl.LogHTTPEnd(context.Background(), r, 200, 12, "127.0.0.1")

	out := buf.String()
	if !strings.Contains(out, "HTTP request completed") {
		t.Fatalf("completion line missing: %s", out)
	}
	if got := strings.Count(out, FieldComponent+"="); got != 1 {
		t.Errorf("component attribute appears %d times, want 1: %s", got, out)
	}
}

func TestLogHTTPStartIsDebugOnly(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/overview", nil)

	sl, buf := newBufferedStructuredLogger(slog.LevelInfo)
	sl.LogHTTPStart(context.Background(), r, "127.0.0.1")
	if buf.Len() != 0 {
		t.Errorf("start line emitted at Info level: %s", buf.String())
	}

	sl, buf = newBufferedStructuredLogger(slog.LevelDebug)
	sl.LogHTTPStart(context.Background(), r, "127.0.0.1")
	if !strings.Contains(buf.String(), "HTTP request started") {
		t.Errorf("start line missing at Debug level: %s", buf.String())
	}
}

func TestLogTransactionAppliedComponentAttachedOnce(t *testing.T) {
	sl, buf := newBufferedStructuredLogger(slog.LevelInfo)

	sl.LogTransactionApplied(context.Background(), "tx-1", "income", "income", 1000, "ws-1")

	out := buf.String()
	if !strings.Contains(out, "Transaction applied") {
		t.Fatalf("apply line missing: %s", out)
	}
	if got := strings.Count(out, FieldComponent+"="); got != 1 {
		t.Errorf("component attribute appears %d times, want 1: %s", got, out)
	}
}
