package openapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkRequest struct {
	FQDN      string `json:"fqdn"`
	ForceSave bool   `json:"forceSave,omitempty"`
}

type startResponse struct {
	ServiceID   string `json:"service_id"`
	ComposeFile string `json:"compose_file"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Stage string `json:"stage,omitempty"`
}

func testGenerator() *Generator {
	g := NewGenerator(WithTitle("Test API"), WithVersion("9.9.9"), WithServer("http://localhost:8080"), WithErrorModel(errorBody{}))
	g.Register(Operation{
		Method:      http.MethodPost,
		Path:        "/api/v1/applications/{id}/check",
		OperationID: "checkDomain",
		Tag:         "Applications",
		Request:     checkRequest{},
		Errors:      []int{422, 409, 401},
	})
	g.Register(Operation{
		Method:      http.MethodPost,
		Path:        "/api/v1/services/{id}/start",
		OperationID: "startService",
		Response:    &startResponse{},
		Errors:      []int{500},
	})
	return g
}

func TestGenerate(t *testing.T) {
	spec := testGenerator().Generate()

	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Equal(t, "Test API", spec.Info.Title)
	assert.Equal(t, "9.9.9", spec.Info.Version)
	require.Len(t, spec.Servers, 1)

	check := spec.Paths.Value("/api/v1/applications/{id}/check")
	require.NotNil(t, check)
	require.NotNil(t, check.Post)
	assert.Equal(t, "checkDomain", check.Post.OperationID)
	assert.Equal(t, []string{"Applications"}, check.Post.Tags)
	require.Len(t, check.Parameters, 1)
	assert.Equal(t, "id", check.Parameters[0].Value.Name)
	assert.Equal(t, "path", check.Parameters[0].Value.In)

	require.NotNil(t, check.Post.RequestBody)
	for _, status := range []int{200, 401, 409, 422} {
		assert.NotNil(t, check.Post.Responses.Status(status), "status %d", status)
	}

	start := spec.Paths.Value("/api/v1/services/{id}/start")
	require.NotNil(t, start)
	require.NotNil(t, start.Post)
	assert.Nil(t, start.Post.RequestBody)
}

func TestGenerate_Schemas(t *testing.T) {
	spec := testGenerator().Generate()

	req := spec.Components.Schemas["checkRequest"]
	require.NotNil(t, req)
	assert.Contains(t, req.Value.Properties, "fqdn")
	assert.Contains(t, req.Value.Properties, "forceSave")
	assert.Equal(t, []string{"fqdn"}, req.Value.Required)

	resp := spec.Components.Schemas["startResponse"]
	require.NotNil(t, resp)
	assert.ElementsMatch(t, []string{"service_id", "compose_file"}, resp.Value.Required)

	errSchema := spec.Components.Schemas["Error"]
	require.NotNil(t, errSchema)
	assert.Contains(t, errSchema.Value.Properties, "stage")
}

func TestGenerate_Cached(t *testing.T) {
	g := testGenerator()
	first := g.Generate()
	assert.Same(t, first, g.Generate())

	g.Register(Operation{Method: http.MethodGet, Path: "/health", OperationID: "health"})
	second := g.Generate()
	assert.NotSame(t, first, second)
	assert.NotNil(t, second.Paths.Value("/health"))
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	testGenerator().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc["openapi"])
	paths, ok := doc["paths"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, paths, "/api/v1/services/{id}/start")
}
