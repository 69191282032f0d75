package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health")
	requireStatus(t, http.StatusOK, resp, resp.Body.String())

	health := decodeEnvelope[HealthResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Components["database"].Status)
	assert.Equal(t, "healthy", health.Components["search"].Status)
}

func TestHealthCheck_DegradedWithoutSearch(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.services.Search = nil

	resp := ts.api.Get("/health")
	requireStatus(t, http.StatusOK, resp, resp.Body.String())
	assert.Equal(t, "degraded", decodeEnvelope[HealthResponse](t, resp.Body.Bytes()).Data.Status)
}

func TestHealthCheck_UnhealthyDatabase(t *testing.T) {
	ts := setupTestServer(t, Options{})
	require.NoError(t, ts.store.Close())

	resp := ts.api.Get("/health")
	requireStatus(t, http.StatusOK, resp, resp.Body.String())

	health := decodeEnvelope[HealthResponse](t, resp.Body.Bytes()).Data
	assert.Equal(t, "unhealthy", health.Status)
	assert.NotEmpty(t, health.Components["database"].Message)
}

func TestCORSAndRequestID(t *testing.T) {
	ts := setupTestServer(t, Options{})

	resp := ts.api.Get("/health", "Origin: https://portal.example.com")
	requireStatus(t, http.StatusOK, resp, resp.Body.String())
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenAPIDocument(t *testing.T) {
	ts := setupTestServer(t, Options{Name: "Shelfwise Test"})

	doc := ts.API().OpenAPI()
	assert.Equal(t, "Shelfwise Test", doc.Info.Title)
	for _, path := range []string{
		"/api/v1/batches",
		"/api/v1/batches/{id}",
		"/api/v1/admin/publishers/{publisherId}/batches",
		"/api/v1/taxonomy",
		"/api/v1/books/{id}",
		"/api/v1/books/search",
	} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.Contains(t, doc.Components.SecuritySchemes, "bearer")
}
