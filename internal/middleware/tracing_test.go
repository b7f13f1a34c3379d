package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return recorder
}

func TestTracing_SpanNames(t *testing.T) {
	tests := []struct {
		method   string
		path     string
		wantName string
	}{
		{http.MethodGet, "/feed/for-you", "GET /feed/for-you"},
		{http.MethodPut, "/feed/config", "PUT /feed/config"},
		{http.MethodGet, "/feed/for-you/", "GET /feed/for-you"},
		{http.MethodGet, "/unknown/123", "GET other"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			recorder := newSpanRecorder(t)

			var traceID string
			handler := Tracing("chirpfeed-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				traceID = GetTraceID(r)
				w.WriteHeader(http.StatusOK)
			}))

			handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tt.method, tt.path, nil))

			spans := recorder.Ended()
			if len(spans) != 1 {
				t.Fatalf("expected 1 span, got %d", len(spans))
			}
			if spans[0].Name() != tt.wantName {
				t.Errorf("expected span name %q, got %q", tt.wantName, spans[0].Name())
			}
			if traceID != spans[0].SpanContext().TraceID().String() {
				t.Errorf("trace ID mismatch: handler saw %q", traceID)
			}
		})
	}
}

func TestTracing_SkipsOperationalEndpoints(t *testing.T) {
	recorder := newSpanRecorder(t)
	handler := Tracing("chirpfeed-test")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if n := len(recorder.Ended()); n != 0 {
		t.Errorf("expected no spans, got %d", n)
	}
}

func TestGetTraceID_NoActiveSpan(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if traceID := GetTraceID(req); traceID != "" {
		t.Errorf("expected empty trace ID for request without span, got %q", traceID)
	}
}
