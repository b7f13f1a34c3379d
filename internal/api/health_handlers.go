package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/chirpfeed/internal/health"
)

// readinessTimeout bounds all dependency checks for one /ready request.
const readinessTimeout = 5 * time.Second

// HealthHandlers provides health and readiness check endpoints for Kubernetes probes.
type HealthHandlers struct {
	checkers map[string]health.Checker
	now      func() time.Time
}

// HealthHandlersConfig configures the health check handlers.
// A nil checker means the dependency is not configured (in-memory mode).
type HealthHandlersConfig struct {
	DBChecker    health.Checker
	RedisChecker health.Checker
}

// NewHealthHandlers creates a new health check handler.
func NewHealthHandlers(config HealthHandlersConfig) *HealthHandlers {
	return &HealthHandlers{
		checkers: map[string]health.Checker{
			"database": config.DBChecker,
			"redis":    config.RedisChecker,
		},
		now: time.Now,
	}
}

// HealthResponse represents the JSON response for health checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// Health handles GET /health (liveness probe).
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r.Context(), http.StatusOK, HealthResponse{
		Status:    "healthy",
		Checks:    map[string]string{"runtime": health.StatusOK},
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /ready (readiness probe).
// Returns 503 if any configured dependency is unavailable.
func (h *HealthHandlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	res := health.CheckAll(ctx, h.checkers)
	for name, err := range res.Errors {
		slog.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
	}

	status, statusCode := "healthy", http.StatusOK
	if !res.Healthy {
		status, statusCode = "unhealthy", http.StatusServiceUnavailable
	}

	writeJSON(w, r.Context(), statusCode, HealthResponse{
		Status:    status,
		Checks:    res.Checks,
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}
