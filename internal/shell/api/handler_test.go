package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artpar/berth/internal/core/admission"
	"github.com/artpar/berth/internal/core/auth"
	"github.com/artpar/berth/internal/core/domain"
	"github.com/artpar/berth/internal/shell/api/middleware"
	"github.com/artpar/berth/internal/shell/deploy"
	"github.com/artpar/berth/internal/shell/docker"
	"github.com/artpar/berth/internal/shell/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeStore struct {
	services map[string]*domain.Service
	pingErr  error
}

func (s *fakeStore) GetService(ctx context.Context, id, teamID string) (*domain.Service, error) {
	svc, ok := s.services[id]
	if !ok || svc.TeamID != teamID {
		return nil, store.NewStoreError("GetService", "service", id, "service not found", store.ErrNotFound)
	}
	return svc, nil
}

func (s *fakeStore) Ping(ctx context.Context) error {
	return s.pingErr
}

type fakeBindings struct {
	bound map[string]bool
	err   error
}

func (b *fakeBindings) IsDomainBound(ctx context.Context, applicationID, fqdn string) (bool, error) {
	return b.bound[fqdn], b.err
}

type fakeResolver map[string][]net.IP

func (r fakeResolver) LookupA(ctx context.Context, host string) []net.IP {
	return r[host]
}

type fakeDeployer struct {
	requests []deploy.Request
	err      error
}

func (d *fakeDeployer) Apply(ctx context.Context, req deploy.Request) (*deploy.Result, error) {
	d.requests = append(d.requests, req)
	if d.err != nil {
		return nil, d.err
	}
	return &deploy.Result{ComposeFile: "/tmp/build-sources/" + req.Kind + "/" + req.ServiceID + "/docker-compose.yaml"}, nil
}

type testEnv struct {
	handler  http.Handler
	store    *fakeStore
	bindings *fakeBindings
	deployer *fakeDeployer
}

func newTestEnv(t *testing.T, resolver fakeResolver) *testEnv {
	t.Helper()

	svc := &domain.Service{
		ID:                "svc1",
		TeamID:            "team-1",
		Kind:              "vscodeserver",
		Version:           "1.0",
		Destination:       &domain.DestinationEngine{Engine: "/var/run/docker.sock", Network: "net1"},
		PersistentStorage: []string{"/home/coder"},
		Config:            map[string]string{"password": "pw"},
	}
	env := &testEnv{
		store:    &fakeStore{services: map[string]*domain.Service{"svc1": svc}},
		bindings: &fakeBindings{bound: map[string]bool{}},
		deployer: &fakeDeployer{},
	}
	h := NewHandler(Config{
		Store:     env.store,
		Admission: admission.NewController(env.bindings, resolver, false, nil),
		Deployer:  env.deployer,
		Version:   "test",
	})
	env.handler = h.Routes()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Host = "platform.example.com:3000"
	if authed {
		req.Header.Set(auth.HeaderUserID, "user-1")
		req.Header.Set(auth.HeaderTeamID, "team-1")
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// =============================================================================
// Health Tests
// =============================================================================

func TestHandleHealth(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/health", nil, false)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHandleReady(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/ready", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)

	env.store.pingErr = errors.New("database is closed")
	rec = env.do(t, http.MethodGet, "/ready", nil, false)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadyResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "failed", resp.Checks["database"])
}

func TestOpenAPIDocument(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodGet, "/openapi.json", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var doc map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&doc))
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/applications/{id}/check")
	assert.Contains(t, paths, "/api/v1/services/{id}/start")
}

// =============================================================================
// Domain Check Tests
// =============================================================================

func TestHandleCheckDomain(t *testing.T) {
	resolver := fakeResolver{
		"platform.example.com": {net.ParseIP("203.0.113.10")},
		"app.example.com":      {net.ParseIP("203.0.113.10")},
		"elsewhere.example":    {net.ParseIP("198.51.100.7")},
	}

	tests := []struct {
		name       string
		body       any
		authed     bool
		bound      string
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "admitted",
			body:       CheckDomainRequest{FQDN: "https://app.example.com"},
			authed:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "conflict",
			body:       CheckDomainRequest{FQDN: "https://www.taken.example"},
			authed:     true,
			bound:      "https://www.taken.example",
			wantStatus: http.StatusConflict,
			wantCode:   "domain_conflict",
			wantError:  "Domain taken.example is already used.",
		},
		{
			name:       "dns mismatch",
			body:       CheckDomainRequest{FQDN: "https://elsewhere.example"},
			authed:     true,
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "dns_mismatch",
			wantError:  "DNS not set correctly or not propagated yet for elsewhere.example. Please check your DNS records.",
		},
		{
			name:       "force save skips dns",
			body:       CheckDomainRequest{FQDN: "https://elsewhere.example", ForceSave: true},
			authed:     true,
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			body:       "{not json",
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "missing fqdn",
			body:       CheckDomainRequest{},
			authed:     true,
			wantStatus: http.StatusBadRequest,
			wantCode:   "bad_request",
		},
		{
			name:       "unauthenticated",
			body:       CheckDomainRequest{FQDN: "https://app.example.com"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, resolver)
			if tt.bound != "" {
				env.bindings.bound[tt.bound] = true
			}

			rec := env.do(t, http.MethodPost, "/api/v1/applications/app1/check", tt.body, tt.authed)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{}`, rec.Body.String())
				return
			}
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, resp.Error)
			}
		})
	}
}

func TestHandleCheckDomain_BindingLookupFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.bindings.err = errors.New("disk I/O error")

	rec := env.do(t, http.MethodPost, "/api/v1/applications/app1/check", CheckDomainRequest{FQDN: "https://a.example"}, true)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "internal_error", resp.Code)
	assert.NotContains(t, resp.Error, "disk")
}

func TestInboundHost(t *testing.T) {
	tests := []struct {
		host string
		want string
	}{
		{"platform.example.com:3000", "platform.example.com"},
		{"platform.example.com", "platform.example.com"},
		{"203.0.113.10:80", "203.0.113.10"},
		{"[::1]:8080", "::1"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = tt.host
		assert.Equal(t, tt.want, inboundHost(req), tt.host)
	}
}

// =============================================================================
// Service Start Tests
// =============================================================================

func TestHandleStartService(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/services/svc1/start", nil, true)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StartServiceResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "svc1", resp.ServiceID)
	assert.Equal(t, "/tmp/build-sources/vscodeserver/svc1/docker-compose.yaml", resp.ComposeFile)

	require.Len(t, env.deployer.requests, 1)
	req := env.deployer.requests[0]
	assert.Equal(t, "svc1", req.ServiceID)
	assert.Equal(t, "vscodeserver", req.Kind)
	assert.Equal(t, "unix:///var/run/docker.sock", req.Host)
	assert.Equal(t, []string{"/home/coder"}, req.FixPaths)
	assert.Equal(t, "1000:1000", req.Owner)
	assert.Contains(t, req.Descriptor.Services, "svc1")
}

func TestHandleStartService_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		authed     bool
		mutate     func(env *testEnv)
		wantStatus int
		wantCode   string
		wantStage  string
	}{
		{
			name:       "unauthenticated",
			path:       "/api/v1/services/svc1/start",
			wantStatus: http.StatusUnauthorized,
			wantCode:   "unauthorized",
		},
		{
			name:       "unknown service",
			path:       "/api/v1/services/missing/start",
			authed:     true,
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:   "other team's service",
			path:   "/api/v1/services/svc1/start",
			authed: true,
			mutate: func(env *testEnv) {
				env.store.services["svc1"].TeamID = "team-2"
			},
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:   "unknown kind",
			path:   "/api/v1/services/svc1/start",
			authed: true,
			mutate: func(env *testEnv) {
				env.store.services["svc1"].Kind = "mystery"
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_service",
		},
		{
			name:   "no destination",
			path:   "/api/v1/services/svc1/start",
			authed: true,
			mutate: func(env *testEnv) {
				env.store.services["svc1"].Destination = nil
			},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "invalid_service",
		},
		{
			name:   "engine failure",
			path:   "/api/v1/services/svc1/start",
			authed: true,
			mutate: func(env *testEnv) {
				env.deployer.err = &deploy.ExecutionError{
					Stage:     deploy.StagePull,
					ServiceID: "svc1",
					Err:       fmt.Errorf("pull: %w", docker.ErrCommandFailed),
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "execution_failed",
			wantStage:  "pull",
		},
		{
			name:   "write failure",
			path:   "/api/v1/services/svc1/start",
			authed: true,
			mutate: func(env *testEnv) {
				env.deployer.err = &deploy.ExecutionError{
					Stage:     deploy.StageSerialize,
					ServiceID: "svc1",
					Err:       fmt.Errorf("%w: read-only file system", deploy.ErrIO),
				}
			},
			wantStatus: http.StatusInternalServerError,
			wantCode:   "io_failed",
			wantStage:  "serialize",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			if tt.mutate != nil {
				tt.mutate(env)
			}

			rec := env.do(t, http.MethodPost, tt.path, nil, tt.authed)

			require.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantStage, resp.Stage)
		})
	}
}

func TestHandleStartService_DevAuth(t *testing.T) {
	env := newTestEnv(t, nil)
	env.store.services["svc1"].TeamID = auth.DevTeamID
	h := NewHandler(Config{
		Store:     env.store,
		Admission: admission.NewController(env.bindings, fakeResolver{}, true, nil),
		Deployer:  env.deployer,
		Auth:      middleware.AuthConfig{Mode: middleware.ModeDev},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/services/svc1/start", nil)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
