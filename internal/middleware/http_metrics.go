package middleware

import (
	"net/http"
	"strconv"
	"time"
)

// routePatterns lists the paths the API serves. Anything else is reported as
// "other" so unknown paths cannot explode metric cardinality.
var routePatterns = map[string]bool{
	"/feed/for-you": true,
	"/feed/config":  true,
	"/health":       true,
	"/ready":        true,
	"/metrics":      true,
}

// normalizePath maps a request path to a bounded label value.
func normalizePath(path string) string {
	if len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	if routePatterns[path] {
		return path
	}
	return "other"
}

// HTTPMetrics is a middleware that records request duration and counts.
// Health check endpoints (/health, /ready) are excluded.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/ready" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
			)
		})
	}
}
