package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/chirpfeed/internal/auth"
)

// Error codes written by the middleware in this package. They share the
// envelope used by the api package.
const (
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeTokenExpired = "token_expired"
	ErrCodeRateLimited  = "rate_limit_exceeded"
)

// TokenValidator validates bearer tokens. *auth.JWTService satisfies it.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Auth is a middleware that requires a valid access token in the
// Authorization header and stores the token's viewer ID in the context.
// Missing, malformed, and expired tokens yield 401 responses.
func Auth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeMiddlewareError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Missing or malformed bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					writeMiddlewareError(w, r, http.StatusUnauthorized, ErrCodeTokenExpired, "Access token has expired")
					return
				}
				slog.DebugContext(r.Context(), "rejected bearer token", "error", err)
				writeMiddlewareError(w, r, http.StatusUnauthorized, ErrCodeUnauthorized, "Invalid access token")
				return
			}

			viewerID := claims.ViewerID()
			reportUserID(r.Context(), viewerID)
			ctx := SetUserID(r.Context(), viewerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" value.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeMiddlewareError writes the {"error":{"code","message"}} envelope and
// records the code for the logging middleware.
func writeMiddlewareError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	SetErrorCode(r.Context(), code)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]map[string]string{
		"error": {"code": code, "message": message},
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode error response", "error", err)
	}
}
