package log

import (
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
	contextPkg "trashiq/pkg/context"
)

func TestMain(m *testing.M) {
	os.Setenv("APP_ENV", "test")
	NewLogger().SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestLevelFromEnv(t *testing.T) {
	tests := []struct {
		in       string
		expected logrus.Level
	}{
		{"", logrus.DebugLevel},
		{"info", logrus.InfoLevel},
		{"WARN", logrus.WarnLevel},
		{"error", logrus.ErrorLevel},
		{"verbose", logrus.DebugLevel},
	}

	for _, tt := range tests {
		if got := levelFromEnv(tt.in); got != tt.expected {
			t.Errorf("levelFromEnv(%q) = %v, expected %v", tt.in, got, tt.expected)
		}
	}
}

func TestWithRequestID(t *testing.T) {
	base := logrus.New()
	base.SetOutput(io.Discard)

	ctx := contextPkg.WithRequestID(context.Background(), "01HZX")
	entry := WithRequestID(base, ctx)
	if got := entry.Data[RequestIDKey]; got != "01HZX" {
		t.Errorf("Expected request ID 01HZX, got %v", got)
	}
	if entry.Logger != base {
		t.Error("Expected entry to use the supplied logger")
	}

	if got := WithRequestID(base, context.Background()).Data[RequestIDKey]; got != "unknown" {
		t.Errorf("Expected unknown request ID, got %v", got)
	}

	if got := WithRequestID(nil, ctx).Logger; got != NewLogger() {
		t.Error("Expected nil logger to fall back to the shared logger")
	}
}

func TestErrorWithTraceID(t *testing.T) {
	tests := []struct {
		name     string
		fields   Fields
		expected string
	}{
		{"request id reused", Fields{RequestIDKey: "01HZX"}, "01HZX"},
		{"unknown request id", Fields{RequestIDKey: "unknown"}, ""},
		{"no fields", nil, ""},
	}

	for _, tt := range tests {
		traceID := ErrorWithTraceID(tt.fields, "failure")
		if tt.expected != "" {
			if traceID != tt.expected {
				t.Errorf("%s: expected trace ID %q, got %q", tt.name, tt.expected, traceID)
			}
			continue
		}
		if _, err := uuid.Parse(traceID); err != nil {
			t.Errorf("%s: expected a UUID trace ID, got %q", tt.name, traceID)
		}
	}

	fields := Fields{"error": "boom"}
	traceID := ErrorWithTraceID(fields, "failure")
	if fields["trace_id"] != traceID {
		t.Errorf("Expected trace_id field %q, got %v", traceID, fields["trace_id"])
	}
}
