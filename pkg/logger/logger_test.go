package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestLogger(t *testing.T, warnStack bool) (*Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	log := New(Options{
		ServiceName: "test",
		Level:       zerolog.DebugLevel,
		WarnStack:   warnStack,
		Output:      &buf,
	})
	return log, &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var out map[string]any
	if err := json.Unmarshal([]byte(line), &out); err != nil {
		t.Fatalf("decode log line %q: %v", line, err)
	}
	return out
}

func TestInfoIncludesServiceName(t *testing.T) {
	log, buf := newTestLogger(t, false)
	log.Info(context.Background(), "hello")

	entry := decodeLine(t, buf)
	if entry["service"] != "test" {
		t.Fatalf("expected service field, got %v", entry["service"])
	}
	if entry["message"] != "hello" {
		t.Fatalf("expected message, got %v", entry["message"])
	}
}

func TestWithFieldsPropagateThroughContext(t *testing.T) {
	log, buf := newTestLogger(t, false)

	ctx := log.WithRequestID(context.Background(), "req-1")
	ctx = log.WithUserID(ctx, "user-1")
	ctx = log.WithFields(ctx, map[string]any{"order_id": "ord-1"})
	log.Info(ctx, "confirmed")

	entry := decodeLine(t, buf)
	if entry["request_id"] != "req-1" {
		t.Fatalf("expected request_id, got %v", entry["request_id"])
	}
	if entry["user_id"] != "user-1" {
		t.Fatalf("expected user_id, got %v", entry["user_id"])
	}
	if entry["order_id"] != "ord-1" {
		t.Fatalf("expected order_id, got %v", entry["order_id"])
	}
}

func TestContextFieldsDoNotLeakAcrossBranches(t *testing.T) {
	log, buf := newTestLogger(t, false)

	base := log.WithRequestID(context.Background(), "req-1")
	_ = log.WithCartID(base, "cart-1")
	log.Info(base, "base")

	entry := decodeLine(t, buf)
	if _, ok := entry["cart_id"]; ok {
		t.Fatalf("cart_id leaked into parent context: %v", entry)
	}
}

func TestErrorIncludesStackAndError(t *testing.T) {
	log, buf := newTestLogger(t, false)
	log.Error(context.Background(), "boom", errors.New("db down"))

	entry := decodeLine(t, buf)
	if entry["error"] != "db down" {
		t.Fatalf("expected error field, got %v", entry["error"])
	}
	if stack, _ := entry["stack"].(string); !strings.Contains(stack, "goroutine") {
		t.Fatalf("expected stack trace, got %v", entry["stack"])
	}
}

func TestWarnStackToggle(t *testing.T) {
	log, buf := newTestLogger(t, true)
	log.Warn(context.Background(), "careful")
	entry := decodeLine(t, buf)
	if _, ok := entry["stack"]; !ok {
		t.Fatalf("expected stack on warn when enabled")
	}

	log, buf = newTestLogger(t, false)
	log.Warn(context.Background(), "careful")
	entry = decodeLine(t, buf)
	if _, ok := entry["stack"]; ok {
		t.Fatalf("did not expect stack on warn when disabled")
	}
}

func TestParseLevel(t *testing.T) {
	if got := ParseLevel("debug"); got != zerolog.DebugLevel {
		t.Fatalf("expected debug, got %v", got)
	}
	if got := ParseLevel(""); got != zerolog.InfoLevel {
		t.Fatalf("expected default info, got %v", got)
	}
	if got := ParseLevel("nonsense"); got != zerolog.InfoLevel {
		t.Fatalf("expected fallback info, got %v", got)
	}
}
