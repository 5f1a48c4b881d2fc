package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAPIFile = "../../../public/docs/v1/openapi.yml"

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(openAPIFile)
	require.NoError(t, err)
	require.NoError(t, doc.Validate(loader.Context))
	return doc
}

func TestOpenAPIDocumentsEveryRoute(t *testing.T) {
	doc := loadOpenAPI(t)
	app, _ := newTestApp(t)

	for _, route := range app.GetRoutes(true) {
		if route.Method == fiber.MethodHead || route.Path == "/test/login" || route.Path == "/metrics" ||
			route.Path == "/api" || route.Path == "/api/" || route.Path == "/" {
			continue
		}
		t.Run(route.Method+" "+route.Path, func(t *testing.T) {
			item := doc.Paths.Find(route.Path)
			require.NotNil(t, item, "path missing from openapi.yml")
			assert.NotNil(t, item.GetOperation(route.Method), "method missing from openapi.yml")
		})
	}
}

func responseSchema(t *testing.T, doc *openapi3.T, path, method string, status int) *openapi3.Schema {
	t.Helper()
	op := doc.Paths.Find(path).GetOperation(method)
	require.NotNil(t, op)
	resp := op.Responses.Status(status)
	require.NotNil(t, resp)
	media := resp.Value.Content.Get(fiber.MIMEApplicationJSON)
	require.NotNil(t, media)
	return media.Schema.Value
}

func TestResponsesMatchOpenAPI(t *testing.T) {
	doc := loadOpenAPI(t)
	app, _ := newTestApp(t)
	cl := loggedInClient(t, app)
	token := cl.csrfToken()

	tests := []struct {
		name   string
		path   string
		req    *http.Request
		status int
	}{
		{
			name:   "plans",
			path:   "/billing/plans",
			req:    httptest.NewRequest(http.MethodGet, "/billing/plans", nil),
			status: fiber.StatusOK,
		},
		{
			name:   "checkout",
			path:   "/billing/checkout",
			req:    jsonRequest(http.MethodPost, "/billing/checkout", checkoutBody(token)),
			status: fiber.StatusOK,
		},
		{
			name:   "checkout without csrf",
			path:   "/billing/checkout",
			req:    jsonRequest(http.MethodPost, "/billing/checkout", checkoutBody("")),
			status: fiber.StatusForbidden,
		},
		{
			name:   "return",
			path:   "/billing/return",
			req:    httptest.NewRequest(http.MethodGet, "/billing/return?session_id=cs_1", nil),
			status: fiber.StatusOK,
		},
		{
			name:   "database webhook without secret",
			path:   "/api/db/webhook",
			req:    jsonRequest(http.MethodPost, "/api/db/webhook", `{"type":"INSERT","table":"invitations"}`),
			status: fiber.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.req.Method
			resp, body := cl.do(tt.req)
			require.Equal(t, tt.status, resp.StatusCode, string(body))
			assert.True(t, strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON))

			var decoded any
			require.NoError(t, json.Unmarshal(body, &decoded))
			schema := responseSchema(t, doc, tt.path, method, tt.status)
			assert.NoError(t, schema.VisitJSON(decoded))
		})
	}
}
