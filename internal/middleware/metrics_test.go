package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetrics_Register(t *testing.T) {
	m := NewMetrics()
	reg := prometheus.NewRegistry()
	if err := m.Register(reg); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	m.IncRateLimitRequests("/feed/for-you", "user")
	m.IncRateLimitBlocked("/feed/for-you", "ip")
	m.IncRateLimitRedisErrors()
	m.ObserveHTTPRequest("GET", "/feed/for-you", "200", 0.02)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, name := range []string{
		MetricRateLimitRequests,
		MetricRateLimitBlocked,
		MetricRateLimitRedisErrors,
		MetricHTTPRequestDuration,
		MetricHTTPRequestsTotal,
	} {
		if !found[name] {
			t.Errorf("metric %s not found in registry", name)
		}
	}

	if err := NewMetrics().Register(reg); err == nil {
		t.Error("registering twice should fail")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.IncRateLimitRequests("/feed/for-you", "ip")
	m.IncRateLimitBlocked("/feed/for-you", "ip")
	m.IncRateLimitRedisErrors()
	m.ObserveHTTPRequest("GET", "/", "200", 0.1)
}

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/feed/for-you":   "/feed/for-you",
		"/feed/for-you/":  "/feed/for-you",
		"/feed/config":    "/feed/config",
		"/metrics":        "/metrics",
		"/":               "other",
		"/chirps/abc-123": "other",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHTTPMetrics(t *testing.T) {
	m := NewMetrics()
	handler := HTTPMetrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed/config" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	requests := []struct{ method, path string }{
		{http.MethodGet, "/feed/for-you"},
		{http.MethodGet, "/feed/for-you"},
		{http.MethodPut, "/feed/config"},
		{http.MethodGet, "/health"},
		{http.MethodGet, "/ready"},
	}
	for _, r := range requests {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(r.method, r.path, nil))
	}

	tests := []struct {
		labels []string
		want   float64
	}{
		{[]string{"GET", "/feed/for-you", "200"}, 2},
		{[]string{"PUT", "/feed/config", "400"}, 1},
		{[]string{"GET", "/health", "200"}, 0},
	}
	for _, tt := range tests {
		var metric dto.Metric
		if err := m.httpRequestsTotal.WithLabelValues(tt.labels...).Write(&metric); err != nil {
			t.Fatalf("failed to read counter: %v", err)
		}
		if got := metric.GetCounter().GetValue(); got != tt.want {
			t.Errorf("%v: expected %v requests, got %v", tt.labels, tt.want, got)
		}
	}

	var hist dto.Metric
	observer := m.httpRequestDuration.WithLabelValues("GET", "/feed/for-you", "200")
	if err := observer.(prometheus.Histogram).Write(&hist); err != nil {
		t.Fatalf("failed to read histogram: %v", err)
	}
	if got := hist.GetHistogram().GetSampleCount(); got != 2 {
		t.Errorf("expected 2 duration samples, got %d", got)
	}
}
