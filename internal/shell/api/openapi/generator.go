// Package openapi generates the OpenAPI 3.0 document served at /openapi.json.
// Request and response schemas are derived from the Go types by reflection.
package openapi

import (
	"encoding/json"
	"net/http"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// =============================================================================
// Generator
// =============================================================================

// Generator produces an OpenAPI 3.0 document from registered operations.
type Generator struct {
	title       string
	version     string
	description string
	servers     []string
	operations  []Operation
	errorModel  any
	mu          sync.RWMutex
	cachedSpec  *openapi3.T
}

// Operation describes one HTTP endpoint.
type Operation struct {
	Method      string
	Path        string // chi-style path, e.g. /api/v1/services/{id}/start
	OperationID string
	Summary     string
	Tag         string
	Request     any   // request body model, nil when the endpoint takes no body
	Response    any   // success body model
	Errors      []int // statuses that return the error model
}

// Option configures the generator.
type Option func(*Generator)

// WithTitle sets the API title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		g.title = title
	}
}

// WithVersion sets the API version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		g.version = version
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(g *Generator) {
		g.servers = append(g.servers, url)
	}
}

// WithErrorModel sets the body model for error responses.
func WithErrorModel(model any) Option {
	return func(g *Generator) {
		g.errorModel = model
	}
}

// NewGenerator creates a new OpenAPI generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		title:       "Berth API",
		version:     "1.0.0",
		description: "Domain admission and service deployment API",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register adds an operation to the document.
func (g *Generator) Register(op Operation) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.operations = append(g.operations, op)
	g.cachedSpec = nil
}

// Generate produces the OpenAPI document.
func (g *Generator) Generate() *openapi3.T {
	g.mu.RLock()
	if g.cachedSpec != nil {
		spec := g.cachedSpec
		g.mu.RUnlock()
		return spec
	}
	g.mu.RUnlock()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cachedSpec != nil {
		return g.cachedSpec
	}

	spec := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       g.title,
			Version:     g.version,
			Description: g.description,
		},
		Paths: &openapi3.Paths{},
		Components: &openapi3.Components{
			Schemas: make(openapi3.Schemas),
		},
	}
	for _, url := range g.servers {
		spec.Servers = append(spec.Servers, &openapi3.Server{URL: url})
	}

	if g.errorModel != nil {
		spec.Components.Schemas["Error"] = g.extractSchema(g.errorModel)
	}

	for _, op := range g.operations {
		g.addOperation(spec, op)
	}

	g.cachedSpec = spec
	return spec
}

// Handler returns an HTTP handler that serves the OpenAPI document.
func (g *Generator) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		spec := g.Generate()

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	}
}

// =============================================================================
// Operation Generation
// =============================================================================

func (g *Generator) addOperation(spec *openapi3.T, op Operation) {
	item := spec.Paths.Value(op.Path)
	if item == nil {
		item = &openapi3.PathItem{Parameters: pathParameters(op.Path)}
		spec.Paths.Set(op.Path, item)
	}

	operation := &openapi3.Operation{
		OperationID: op.OperationID,
		Summary:     op.Summary,
		Responses:   openapi3.NewResponses(openapi3.WithStatus(http.StatusOK, g.responseRef(spec, op.Response, "OK"))),
	}
	if op.Tag != "" {
		operation.Tags = []string{op.Tag}
	}

	if op.Request != nil {
		operation.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithJSONSchemaRef(g.modelRef(spec, op.Request)),
		}
	}

	errs := append([]int(nil), op.Errors...)
	sort.Ints(errs)
	for _, status := range errs {
		resp := openapi3.NewResponse().WithDescription(http.StatusText(status))
		if g.errorModel != nil {
			resp = resp.WithJSONSchemaRef(&openapi3.SchemaRef{Ref: "#/components/schemas/Error"})
		}
		operation.Responses.Set(strconv.Itoa(status), &openapi3.ResponseRef{Value: resp})
	}

	item.SetOperation(strings.ToUpper(op.Method), operation)
}

func (g *Generator) responseRef(spec *openapi3.T, model any, description string) *openapi3.ResponseRef {
	resp := openapi3.NewResponse().WithDescription(description)
	if model != nil {
		resp = resp.WithJSONSchemaRef(g.modelRef(spec, model))
	}
	return &openapi3.ResponseRef{Value: resp}
}

// modelRef registers model under its type name and returns a reference to it.
func (g *Generator) modelRef(spec *openapi3.T, model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	name := t.Name()
	if name == "" {
		return g.extractSchema(model)
	}
	if _, ok := spec.Components.Schemas[name]; !ok {
		spec.Components.Schemas[name] = g.extractSchema(model)
	}
	return &openapi3.SchemaRef{Ref: "#/components/schemas/" + name}
}

func pathParameters(path string) openapi3.Parameters {
	var params openapi3.Parameters
	for _, seg := range strings.Split(path, "/") {
		if !strings.HasPrefix(seg, "{") || !strings.HasSuffix(seg, "}") {
			continue
		}
		params = append(params, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(strings.Trim(seg, "{}")).
				WithSchema(openapi3.NewStringSchema()),
		})
	}
	return params
}

// =============================================================================
// Schema Generation
// =============================================================================

// extractSchema extracts an OpenAPI schema from a Go struct.
func (g *Generator) extractSchema(model any) *openapi3.SchemaRef {
	t := reflect.TypeOf(model)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return g.goTypeToSchema(t)
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: make(openapi3.Schemas),
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		name := field.Name
		optional := false
		if jsonTag != "" {
			parts := strings.Split(jsonTag, ",")
			if parts[0] != "" {
				name = parts[0]
			}
			for _, p := range parts[1:] {
				if p == "omitempty" {
					optional = true
				}
			}
		}

		if propSchema := g.goTypeToSchema(field.Type); propSchema != nil {
			schema.Properties[name] = propSchema
			if !optional {
				schema.Required = append(schema.Required, name)
			}
		}
	}

	return &openapi3.SchemaRef{Value: schema}
}

// goTypeToSchema converts a Go type to an OpenAPI schema.
func (g *Generator) goTypeToSchema(t reflect.Type) *openapi3.SchemaRef {
	switch t.Kind() {
	case reflect.String:
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32:
		return &openapi3.SchemaRef{Value: openapi3.NewInt32Schema()}

	case reflect.Int64:
		return &openapi3.SchemaRef{Value: openapi3.NewInt64Schema()}

	case reflect.Bool:
		return &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()}

	case reflect.Slice, reflect.Array:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:  &openapi3.Types{"array"},
				Items: g.goTypeToSchema(t.Elem()),
			},
		}

	case reflect.Map:
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:                 &openapi3.Types{"object"},
				AdditionalProperties: openapi3.AdditionalProperties{Schema: g.goTypeToSchema(t.Elem())},
			},
		}

	case reflect.Ptr:
		schema := g.goTypeToSchema(t.Elem())
		if schema != nil && schema.Value != nil {
			schema.Value.Nullable = true
		}
		return schema

	case reflect.Struct:
		if t == reflect.TypeOf(time.Time{}) {
			return &openapi3.SchemaRef{Value: openapi3.NewDateTimeSchema()}
		}
		return g.extractSchema(reflect.New(t).Interface())

	default:
		return &openapi3.SchemaRef{Value: openapi3.NewObjectSchema()}
	}
}
