// Package auth provides authentication context and authorization functions.
// Identity is asserted by the gateway in front of the API through request headers.
package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
)

// =============================================================================
// Context Key
// =============================================================================

type contextKey string

const authContextKey contextKey = "auth"

// =============================================================================
// Types
// =============================================================================

// Context represents the authentication context for a request.
type Context struct {
	// UserID is the caller's identity (from X-User-ID header).
	UserID string

	// TeamID is the team the caller acts for (from X-Team-ID header).
	TeamID string

	// Authenticated indicates whether the request is authenticated
	Authenticated bool
}

// =============================================================================
// Header Constants
// =============================================================================

const (
	// HeaderUserID is the header containing the authenticated user's ID
	HeaderUserID = "X-User-ID"

	// HeaderTeamID is the header containing the caller's current team
	HeaderTeamID = "X-Team-ID"

	// HeaderGatewaySecret is the header containing the shared secret for validation
	HeaderGatewaySecret = "X-Gateway-Secret"
)

// DevUserID and DevTeamID are the fixed identity injected in dev auth mode.
const (
	DevUserID = "dev-user"
	DevTeamID = "dev-team"
)

// =============================================================================
// Context Extraction
// =============================================================================

// ExtractFromRequest extracts auth context from HTTP request headers.
func ExtractFromRequest(r *http.Request) Context {
	return ExtractFromHeaders(r.Header)
}

// HeaderGetter is an interface for getting header values.
// This allows testing without requiring an http.Request.
type HeaderGetter interface {
	Get(key string) string
}

// ExtractFromHeaders extracts auth context from headers.
//
// Auth sources (checked in order):
//  1. X-User-ID + X-Team-ID headers
//  2. Authorization: Bearer {jwt} - payload sub and tid claims, signature already checked upstream
//
// A caller without both a user and a team is unauthenticated.
func ExtractFromHeaders(headers HeaderGetter) Context {
	userID := strings.TrimSpace(headers.Get(HeaderUserID))
	teamID := strings.TrimSpace(headers.Get(HeaderTeamID))

	if userID == "" {
		claims := parseBearer(headers.Get("Authorization"))
		if claims == nil {
			return Context{}
		}
		userID = claims.Sub
		if teamID == "" {
			teamID = claims.TeamID
		}
	}

	if userID == "" || teamID == "" {
		return Context{}
	}
	return Context{UserID: userID, TeamID: teamID, Authenticated: true}
}

// DevContext returns the identity used when auth.mode is dev.
func DevContext() Context {
	return Context{UserID: DevUserID, TeamID: DevTeamID, Authenticated: true}
}

type jwtClaims struct {
	Sub    string `json:"sub"`
	TeamID string `json:"tid"`
}

func parseBearer(authHeader string) *jwtClaims {
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return nil
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil
	}
	var claims jwtClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil
	}
	return &claims
}

// =============================================================================
// Context Storage
// =============================================================================

// WithContext stores the auth context in the request context.
func WithContext(ctx context.Context, authCtx Context) context.Context {
	return context.WithValue(ctx, authContextKey, authCtx)
}

// FromContext retrieves the auth context from the request context.
// If no auth context is found, returns an unauthenticated context.
func FromContext(ctx context.Context) Context {
	if authCtx, ok := ctx.Value(authContextKey).(Context); ok {
		return authCtx
	}
	return Context{Authenticated: false}
}

// =============================================================================
// Helper Types for Testing
// =============================================================================

// MapHeaderGetter wraps a map to implement HeaderGetter interface.
type MapHeaderGetter map[string]string

func (m MapHeaderGetter) Get(key string) string {
	return m[key]
}
