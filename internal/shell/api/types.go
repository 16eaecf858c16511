package api

// =============================================================================
// Request Types
// =============================================================================

// CheckDomainRequest is the request body for a domain check.
type CheckDomainRequest struct {
	FQDN      string `json:"fqdn"`
	ForceSave bool   `json:"forceSave,omitempty"`
}

// =============================================================================
// Response Types
// =============================================================================

// CheckDomainResponse is returned when a domain is admitted.
type CheckDomainResponse struct{}

// StartServiceResponse is returned when a service has been deployed.
type StartServiceResponse struct {
	ServiceID   string `json:"service_id"`
	ComposeFile string `json:"compose_file"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage,omitempty"`
}

// HealthResponse is the response for the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// ReadyResponse is the response for the readiness endpoint.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
