package log

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLogger_ComponentAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentCurrency, Output: &buf})

	logger.Info("Rates fetched", FieldFromCurrency, "USD")
	out := buf.String()
	if !strings.Contains(out, "component=currency") {
		t.Errorf("expected component attribute, got %q", out)
	}
	if !strings.Contains(out, "from=USD") {
		t.Errorf("expected from attribute, got %q", out)
	}

	buf.Reset()
	logger.WithComponent(ComponentAuth).Warn("Login failed")
	if !strings.Contains(buf.String(), "component=auth") {
		t.Errorf("expected auth component, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithTransaction(12, 3, "EXPENSE", "10.50", "").
		WithConversion("USD", "EUR", "Live Rates").
		WithError(nil)

	if _, ok := f[FieldError]; ok {
		t.Error("nil error should not be recorded")
	}
	if _, ok := f[FieldCategory]; ok {
		t.Error("empty category should not be recorded")
	}
	if f[FieldAmount] != "10.50" || f[FieldRateSource] != "Live Rates" {
		t.Errorf("unexpected fields %v", f)
	}
	if got := len(f.WithError(errors.New("boom")).ToSlice()); got != 2*len(f) {
		t.Errorf("ToSlice length = %d, want %d", got, 2*len(f))
	}
}

func TestMiddleware_RequestID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf})

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "abc123" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == nil {
		t.Fatal("logger missing from context")
	}
	got.Info("hello")
	if !strings.Contains(buf.String(), "request_id=abc123") {
		t.Errorf("expected request id in output, got %q", buf.String())
	}
}

func TestFromContext_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if l := FromContext(req.Context()); l.Component() != "unknown" {
		t.Errorf("Component() = %q, want unknown", l.Component())
	}
}
