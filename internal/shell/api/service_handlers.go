package api

import (
	"net/http"

	"github.com/artpar/berth/internal/core/auth"
	"github.com/artpar/berth/internal/core/synth"
	"github.com/artpar/berth/internal/shell/deploy"
	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Service Start Handler
// =============================================================================

// handleStartService synthesizes the service's descriptor and applies it to the
// service's destination engine.
func (h *Handler) handleStartService(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	authCtx := auth.FromContext(r.Context())

	svc, err := h.store.GetService(r.Context(), id, authCtx.TeamID)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if !auth.CanManageService(authCtx, *svc) {
		h.writeError(w, http.StatusNotFound, "service not found", "not_found")
		return
	}

	descriptor, err := synth.Synthesize(svc, h.synthOpts)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	kind, err := synth.LookupKind(svc.Kind)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	res, err := h.deployer.Apply(r.Context(), deploy.Request{
		ServiceID:  svc.ID,
		Kind:       svc.Kind,
		Descriptor: descriptor,
		Host:       svc.Destination.Host(),
		FixPaths:   svc.PersistentStorage,
		Owner:      kind.Owner,
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	h.logger.Info("service started",
		"service_id", svc.ID,
		"kind", svc.Kind,
		"host", svc.Destination.Host(),
	)
	h.writeJSON(w, http.StatusOK, StartServiceResponse{
		ServiceID:   svc.ID,
		ComposeFile: res.ComposeFile,
	})
}
