// Package middleware provides HTTP middleware for the Berth API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/artpar/berth/internal/core/auth"
)

// =============================================================================
// Auth Configuration
// =============================================================================

// Auth modes.
const (
	// ModeHeader trusts identity headers set by the gateway in front of the API.
	ModeHeader = "header"
	// ModeDev injects a fixed identity into every request.
	ModeDev = "dev"
)

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// Mode is ModeHeader or ModeDev. Empty means ModeHeader.
	Mode string

	// SharedSecret is an optional secret to validate X-Gateway-Secret header.
	// If empty, secret validation is skipped.
	SharedSecret string

	// Logger for auth middleware logging.
	Logger *slog.Logger
}

// =============================================================================
// Auth Middleware
// =============================================================================

// AuthMiddleware extracts authentication context from gateway headers
// and stores it in the request context.
type AuthMiddleware struct {
	config AuthConfig
}

// NewAuthMiddleware creates a new auth middleware with the given config.
func NewAuthMiddleware(cfg AuthConfig) *AuthMiddleware {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeHeader
	}
	return &AuthMiddleware{config: cfg}
}

// Handler returns the middleware handler function.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.config.Mode == ModeDev {
			r = r.WithContext(auth.WithContext(r.Context(), auth.DevContext()))
			next.ServeHTTP(w, r)
			return
		}

		if m.config.SharedSecret != "" {
			if r.Header.Get(auth.HeaderGatewaySecret) != m.config.SharedSecret {
				m.config.Logger.Warn("invalid gateway secret",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
				)
				writeJSONError(w, http.StatusUnauthorized, "invalid gateway secret")
				return
			}
		}

		ctx := auth.ExtractFromRequest(r)
		r = r.WithContext(auth.WithContext(r.Context(), ctx))

		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Require Auth Middleware
// =============================================================================

// RequireAuth is a middleware that requires authentication.
// Must be used AFTER AuthMiddleware.
func RequireAuth(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := auth.FromContext(r.Context())

			if !ctx.Authenticated {
				logger.Warn("unauthenticated request to protected endpoint",
					"remote_addr", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
				)
				writeJSONError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// =============================================================================
// JSON Error Response
// =============================================================================

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: message, Code: "unauthorized"})
}
