package api

import (
	"log/slog"
	"net/http"

	"github.com/onnwee/chirpfeed/internal/middleware"
)

// RouterConfig collects everything NewRouter wires together.
// MetricsHandler, Metrics and ServiceName are optional.
type RouterConfig struct {
	Feed   *FeedHandlers
	Health *HealthHandlers

	Auth           middleware.TokenValidator
	RateLimitStore middleware.RateLimitStore
	RateLimit      middleware.RateLimitConfig

	Logger         *slog.Logger
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler

	// ServiceName enables request tracing when non-empty.
	ServiceName string
}

// NewRouter builds the HTTP handler for the service.
//
// Every request passes through RequestID, Tracing, Logging and HTTPMetrics.
// Feed routes additionally require a bearer token and are rate limited per
// viewer.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	viewerOnly := func(h http.HandlerFunc) http.Handler {
		return middleware.Auth(cfg.Auth)(
			middleware.RateLimiter(cfg.RateLimitStore, cfg.RateLimit, middleware.UserKeyFunc(), cfg.Metrics)(h),
		)
	}

	mux.Handle("GET /feed/for-you", viewerOnly(cfg.Feed.GetForYou))
	mux.Handle("GET /feed/config", viewerOnly(cfg.Feed.GetFeedConfig))
	mux.Handle("PUT /feed/config", viewerOnly(cfg.Feed.PutFeedConfig))
	mux.Handle("DELETE /feed/config", viewerOnly(cfg.Feed.DeleteFeedConfig))

	mux.HandleFunc("GET /health", cfg.Health.Health)
	mux.HandleFunc("GET /ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var handler http.Handler = mux
	handler = middleware.HTTPMetrics(cfg.Metrics)(handler)
	handler = middleware.Logging(logger)(handler)
	if cfg.ServiceName != "" {
		handler = middleware.Tracing(cfg.ServiceName)(handler)
	}
	return middleware.RequestID(handler)
}
