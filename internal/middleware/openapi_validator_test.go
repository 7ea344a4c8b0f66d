package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"guestbook-board/api"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadSpec(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(api.Spec)
	require.NoError(t, err, "Failed to load OpenAPI spec")
	require.NoError(t, doc.Validate(loader.Context), "OpenAPI spec validation failed")
	return doc
}

func TestOpenAPISpecIsValid(t *testing.T) {
	doc := loadSpec(t)

	assert.Equal(t, "Guestbook Board API", doc.Info.Title)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	// The router only registers operations under a declared server
	assert.NotEmpty(t, doc.Servers, "At least one server should be defined")
}

func TestAllRoutesAreDocumentedInOpenAPI(t *testing.T) {
	doc := loadSpec(t)

	implementedRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/api/messages"},
		{"POST", "/api/messages"},
		{"PATCH", "/api/messages"},
		{"PUT", "/api/messages"},
		{"GET", "/health"},
		{"GET", "/health/ready"},
	}

	for _, route := range implementedRoutes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			pathItem := doc.Paths.Find(route.path)
			require.NotNil(t, pathItem, "Path not found in OpenAPI spec: %s", route.path)

			operation := pathItem.GetOperation(route.method)
			require.NotNil(t, operation, "Operation not found in OpenAPI spec: %s %s", route.method, route.path)

			assert.NotEmpty(t, operation.OperationID, "OperationID should be set")
			assert.NotEmpty(t, operation.Tags, "Tags should be set")
			assert.NotZero(t, operation.Responses.Len(), "Responses should be defined")
		})
	}

	assert.Len(t, doc.Paths.Map(), 3, "Number of paths should match")
}

func TestOpenAPISchemas(t *testing.T) {
	doc := loadSpec(t)

	requiredSchemas := []string{
		"Message",
		"MessageList",
		"MessageEnvelope",
		"CreateMessageRequest",
		"EditMessageRequest",
		"ArrangementItem",
		"RearrangeRequest",
		"RearrangeResponse",
		"ErrorResponse",
	}

	for _, schemaName := range requiredSchemas {
		assert.NotNil(t, doc.Components.Schemas[schemaName], "Schema should exist: %s", schemaName)
	}

	item := doc.Components.Schemas["ArrangementItem"].Value
	assert.Equal(t, []string{"id"}, item.Required)
}

func TestOpenAPIResponseCodes(t *testing.T) {
	doc := loadSpec(t)

	pathItem := doc.Paths.Find("/api/messages")
	require.NotNil(t, pathItem)

	create := pathItem.GetOperation("POST")
	require.NotNil(t, create)
	assert.NotNil(t, create.Responses.Status(201), "Create should return 201 on success")
	assert.NotNil(t, create.Responses.Status(400), "Create should return 400 on invalid input")
	assert.NotNil(t, create.Responses.Status(409), "Create should return 409 when the board is out of room")

	rearrange := pathItem.GetOperation("PUT")
	require.NotNil(t, rearrange)
	assert.NotNil(t, rearrange.Responses.Status(200))
	assert.NotNil(t, rearrange.Responses.Status(404), "Rearrange should return 404 on unknown id")
	assert.NotNil(t, rearrange.Responses.Status(503))
}

func TestDefaultOpenAPIValidatorConfig(t *testing.T) {
	config := DefaultOpenAPIValidatorConfig(true)

	assert.NotNil(t, config)
	assert.True(t, config.Enabled)
	assert.Equal(t, api.Spec, config.Spec)
	assert.True(t, config.ValidateRequests, "Should validate requests by default")
	assert.False(t, config.ValidateResponses, "Should not validate responses by default (performance)")

	skipPathsStr := strings.Join(config.SkipPaths, ",")
	assert.Contains(t, skipPathsStr, "/health")
	assert.Contains(t, skipPathsStr, "/metrics")
}

func TestOpenAPIMiddlewareWithInvalidSpec(t *testing.T) {
	config := &OpenAPIValidatorConfig{
		Enabled:          true,
		Spec:             []byte("not: [an openapi document"),
		ValidateRequests: true,
	}

	// Falls back to a no-op middleware
	middleware := OpenAPIValidator(config)
	require.NotNil(t, middleware)

	rr := httptest.NewRecorder()
	middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(`{"content":5}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOpenAPIMiddlewareDisabled(t *testing.T) {
	middleware := OpenAPIValidator(DefaultOpenAPIValidatorConfig(false))
	require.NotNil(t, middleware)

	rr := httptest.NewRecorder()
	middleware(okHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/messages", strings.NewReader(`{"order":[{}]}`)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestOpenAPIMiddlewareValidatesRequests(t *testing.T) {
	handler := OpenAPIValidator(DefaultOpenAPIValidatorConfig(true))(okHandler())

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
	}{
		{"valid create", http.MethodPost, "/api/messages", `{"title":"hi","content":"hello"}`, http.StatusOK},
		{"create with numeric content", http.MethodPost, "/api/messages", `{"content":5}`, http.StatusBadRequest},
		{"valid edit", http.MethodPatch, "/api/messages", `{"id":1,"content":"x"}`, http.StatusOK},
		{"edit without id", http.MethodPatch, "/api/messages", `{"content":"x"}`, http.StatusBadRequest},
		{"valid reorder", http.MethodPut, "/api/messages", `{"order":[{"id":1,"order_index":0}]}`, http.StatusOK},
		{"reorder item without id", http.MethodPut, "/api/messages", `{"order":[{"order_index":0}]}`, http.StatusBadRequest},
		{"reorder index above int32", http.MethodPut, "/api/messages", `{"order":[{"id":1,"order_index":1099511627776}]}`, http.StatusBadRequest},
		{"reorder index at int32 max", http.MethodPut, "/api/messages", `{"order":[{"id":1,"order_index":2147483647}]}`, http.StatusOK},
		{"move below int32", http.MethodPut, "/api/messages", `{"positions":[{"id":1,"pos_x":-2147483649,"pos_y":0}]}`, http.StatusBadRequest},
		{"move with string coordinate", http.MethodPut, "/api/messages", `{"positions":[{"id":1,"pos_x":"a","pos_y":0}]}`, http.StatusBadRequest},
		{"list", http.MethodGet, "/api/messages", "", http.StatusOK},
		{"skipped path", http.MethodGet, "/metrics", "", http.StatusOK},
		{"undocumented path", http.MethodGet, "/nowhere", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.body == "" {
				req = httptest.NewRequest(tt.method, tt.path, nil)
			} else {
				req = httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
				req.Header.Set("Content-Type", "application/json")
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantStatus == http.StatusBadRequest {
				assert.Contains(t, rr.Body.String(), "INVALID_REQUEST")
			}
		})
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}
