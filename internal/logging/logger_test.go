package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"INFO", INFO},
		{"warning", WARN},
		{" error ", ERROR},
		{"fatal", FATAL},
		{"verbose", INFO},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", tt.in, tt.want, got)
		}
	}
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "debug", Component: "test", JSONFormat: true}, &buf)

	l.Info("Trade generated", "symbol", "BTCUSDT", "leverage", 7, "err", errors.New("boom"))
	entry := decode(t, &buf)

	if entry["message"] != "Trade generated" {
		t.Errorf("Expected message 'Trade generated', got %v", entry["message"])
	}
	if entry["component"] != "test" {
		t.Errorf("Expected component test, got %v", entry["component"])
	}
	if entry["symbol"] != "BTCUSDT" {
		t.Errorf("Expected symbol BTCUSDT, got %v", entry["symbol"])
	}
	if entry["leverage"] != float64(7) {
		t.Errorf("Expected leverage 7, got %v", entry["leverage"])
	}
	if entry["err"] != "boom" {
		t.Errorf("Expected err boom, got %v", entry["err"])
	}
}

func TestPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", JSONFormat: true}, &buf)

	l.Warn("skipped %d candidates", 3)
	if got := decode(t, &buf)["message"]; got != "skipped 3 candidates" {
		t.Errorf("Expected formatted message, got %v", got)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "warn", JSONFormat: true}, &buf)

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected nothing below WARN to be written, got %q", buf.String())
	}
	l.Error("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected error to be written, got %q", buf.String())
	}
}

func TestWithHelpersDoNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&Config{Level: "info", JSONFormat: true}, &buf)
	child := parent.WithComponent("reversal").WithField("symbol", "ETHUSDT").WithError(errors.New("stale"))

	child.Info("child")
	entry := decode(t, &buf)
	if entry["component"] != "reversal" || entry["symbol"] != "ETHUSDT" || entry["error"] != "stale" {
		t.Errorf("Expected child fields, got %v", entry)
	}

	buf.Reset()
	parent.Info("parent")
	entry = decode(t, &buf)
	if _, ok := entry["symbol"]; ok {
		t.Errorf("Expected parent logger without symbol, got %v", entry)
	}
	if parent.WithError(nil) != parent {
		t.Error("Expected WithError(nil) to return the same logger")
	}
}

func TestTraceContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&Config{Level: "info", JSONFormat: true}, &buf)
	ctx := NewContext(context.Background(), base)

	ctx, l := WithTraceContext(ctx, "trace-123")
	if TraceIDFromContext(ctx) != "trace-123" {
		t.Errorf("Expected trace id trace-123, got %q", TraceIDFromContext(ctx))
	}
	if FromContext(ctx) != l {
		t.Error("Expected FromContext to return the traced logger")
	}

	l.Info("traced")
	if got := decode(t, &buf)["trace_id"]; got != "trace-123" {
		t.Errorf("Expected trace_id in output, got %v", got)
	}

	_, generated := WithTraceContext(context.Background(), "")
	if generated == nil {
		t.Fatal("Expected logger for generated trace")
	}
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&Config{Level: "info", JSONFormat: false}, &buf)
	l.Info("plain text", "symbol", "SOLUSDT")
	out := buf.String()
	if !strings.Contains(out, "plain text") || !strings.Contains(out, "symbol=SOLUSDT") {
		t.Errorf("Expected console output with message and field, got %q", out)
	}
}
