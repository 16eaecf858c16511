package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/artpar/berth/internal/core/admission"
	"github.com/go-chi/chi/v5"
)

// =============================================================================
// Domain Check Handler
// =============================================================================

// handleCheckDomain admits or rejects a custom domain for an application.
func (h *Handler) handleCheckDomain(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req CheckDomainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON", "bad_request")
		return
	}
	if strings.TrimSpace(req.FQDN) == "" {
		h.writeError(w, http.StatusBadRequest, "fqdn is required", "bad_request")
		return
	}

	err := h.admission.Validate(r.Context(), admission.Request{
		ApplicationID: id,
		FQDN:          req.FQDN,
		ForceSave:     req.ForceSave,
		InboundHost:   inboundHost(r),
	})
	if err != nil {
		h.writeErr(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, CheckDomainResponse{})
}

// inboundHost is the host the request was addressed to, without port.
func inboundHost(r *http.Request) string {
	host := r.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.Trim(host, "[]")
}
