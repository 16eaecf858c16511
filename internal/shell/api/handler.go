// Package api provides HTTP handlers for the Berth API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/artpar/berth/internal/core/admission"
	"github.com/artpar/berth/internal/core/compose"
	"github.com/artpar/berth/internal/core/domain"
	"github.com/artpar/berth/internal/core/synth"
	"github.com/artpar/berth/internal/shell/api/middleware"
	"github.com/artpar/berth/internal/shell/api/openapi"
	"github.com/artpar/berth/internal/shell/deploy"
	"github.com/artpar/berth/internal/shell/store"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// =============================================================================
// Handler
// =============================================================================

// ServiceStore is the part of the data layer the handlers read.
type ServiceStore interface {
	GetService(ctx context.Context, id, teamID string) (*domain.Service, error)
	Ping(ctx context.Context) error
}

// Deployer applies a deployment request.
type Deployer interface {
	Apply(ctx context.Context, req deploy.Request) (*deploy.Result, error)
}

// Config holds the handler's collaborators.
type Config struct {
	Store     ServiceStore
	Admission *admission.Controller
	Deployer  Deployer
	Auth      middleware.AuthConfig
	// Version is written into deployment labels and the API document.
	Version string
	Logger  *slog.Logger
}

// Handler provides HTTP handlers for the API.
type Handler struct {
	store     ServiceStore
	admission *admission.Controller
	deployer  Deployer
	auth      *middleware.AuthMiddleware
	synthOpts synth.Options
	openapi   *openapi.Generator
	logger    *slog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Auth.Logger == nil {
		cfg.Auth.Logger = cfg.Logger
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	h := &Handler{
		store:     cfg.Store,
		admission: cfg.Admission,
		deployer:  cfg.Deployer,
		auth:      middleware.NewAuthMiddleware(cfg.Auth),
		synthOpts: synth.Options{PlatformVersion: version},
		openapi:   openapi.NewGenerator(openapi.WithVersion(version), openapi.WithErrorModel(ErrorResponse{})),
		logger:    cfg.Logger.With("component", "api"),
	}
	h.registerOperations()
	return h
}

// Routes returns the router with all routes configured.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(h.jsonContentType)
	r.Use(h.requestIDHeader)

	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/openapi.json", h.openapi.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.auth.Handler)
		r.Use(middleware.RequireAuth(h.logger))

		r.Post("/applications/{id}/check", h.handleCheckDomain)
		r.Post("/services/{id}/start", h.handleStartService)
	})

	return r
}

func (h *Handler) registerOperations() {
	h.openapi.Register(openapi.Operation{
		Method:      http.MethodPost,
		Path:        "/api/v1/applications/{id}/check",
		OperationID: "checkApplicationDomain",
		Summary:     "Check whether a domain may be bound to an application",
		Tag:         "Applications",
		Request:     CheckDomainRequest{},
		Response:    CheckDomainResponse{},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusConflict, http.StatusUnprocessableEntity, http.StatusInternalServerError},
	})
	h.openapi.Register(openapi.Operation{
		Method:      http.MethodPost,
		Path:        "/api/v1/services/{id}/start",
		OperationID: "startService",
		Summary:     "Deploy a service to its destination engine",
		Tag:         "Services",
		Response:    StartServiceResponse{},
		Errors:      []int{http.StatusUnauthorized, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError},
	})
	h.openapi.Register(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/health",
		OperationID: "health",
		Tag:         "System",
		Response:    HealthResponse{},
	})
	h.openapi.Register(openapi.Operation{
		Method:      http.MethodGet,
		Path:        "/ready",
		OperationID: "ready",
		Tag:         "System",
		Response:    ReadyResponse{},
		Errors:      []int{http.StatusServiceUnavailable},
	})
}

// =============================================================================
// Middleware
// =============================================================================

// jsonContentType sets Content-Type header to application/json.
func (h *Handler) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requestIDHeader copies the request ID to the response header.
func (h *Handler) requestIDHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
		}
		next.ServeHTTP(w, r)
	})
}

// =============================================================================
// Health Handlers
// =============================================================================

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.store.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness check failed", "check", "database", "error", err)
		checks["database"] = "failed"
		h.writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{
			Status: "not_ready",
			Checks: checks,
		})
		return
	}
	checks["database"] = "ok"

	h.writeJSON(w, http.StatusOK, ReadyResponse{
		Status: "ready",
		Checks: checks,
	})
}

// =============================================================================
// Response Helpers
// =============================================================================

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode JSON", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message, code string) {
	h.writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeErr translates any error returned by the core into a response. It is the only
// place error kinds are mapped to statuses.
func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	var admissionErr *admission.Error
	if errors.As(err, &admissionErr) {
		status := http.StatusUnprocessableEntity
		if admissionErr.Kind == admission.KindDomainConflict {
			status = http.StatusConflict
		}
		h.writeError(w, status, admissionErr.Message, string(admissionErr.Kind))
		return
	}

	var execErr *deploy.ExecutionError
	if errors.As(err, &execErr) {
		code := "execution_failed"
		if errors.Is(err, deploy.ErrIO) {
			code = "io_failed"
		}
		h.logger.Error("deployment failed",
			"request_id", chimw.GetReqID(r.Context()),
			"service_id", execErr.ServiceID,
			"stage", execErr.Stage,
			"error", err,
		)
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: execErr.Error(),
			Code:  code,
			Stage: string(execErr.Stage),
		})
		return
	}

	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, err.Error(), "not_found")
	case isServiceInvalid(err):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error(), "invalid_service")
	default:
		h.logger.Error("request failed",
			"request_id", chimw.GetReqID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		h.writeError(w, http.StatusInternalServerError, "internal error", "internal_error")
	}
}

func isServiceInvalid(err error) bool {
	for _, target := range []error{
		synth.ErrUnknownKind,
		domain.ErrServiceKindRequired,
		domain.ErrServiceVersionRequired,
		domain.ErrDestinationRequired,
		domain.ErrNetworkRequired,
		domain.ErrStoragePathInvalid,
		compose.ErrDuplicateVolume,
		compose.ErrInvalidVolumeMount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
