package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardrobeapp/wardrobe-server/internal/config"
	"github.com/wardrobeapp/wardrobe-server/internal/search"
	"github.com/wardrobeapp/wardrobe-server/internal/service"
	"github.com/wardrobeapp/wardrobe-server/internal/sse"
	"github.com/wardrobeapp/wardrobe-server/internal/store/memory"
)

// testEnvelope is the success envelope with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// testErrorEnvelope is the coded error envelope.
type testErrorEnvelope struct {
	Version int               `json:"v"`
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details"`
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api        humatest.TestAPI
	store      *memory.Store
	sseManager *sse.Manager
}

type testOption func(*config.Config, *testSetup)

type testSetup struct {
	withSearch bool
}

// withRateLimit enables the write limiter with the given budget.
func withRateLimit(perMinute, burst int) testOption {
	return func(cfg *config.Config, _ *testSetup) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute, Burst: burst}
	}
}

// withSearch wires an in-memory search index into the server.
func withSearch() testOption {
	return func(_ *config.Config, s *testSetup) {
		s.withSearch = true
	}
}

// setupTestServer creates a server backed by an in-memory catalog.
func setupTestServer(t *testing.T, opts ...testOption) *testServer {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	cfg := &config.Config{
		Server: config.ServerConfig{CORSOrigins: []string{"*"}},
	}
	var setup testSetup
	for _, opt := range opts {
		opt(cfg, &setup)
	}

	st := memory.New(logger)
	sseManager := sse.NewManager(logger)

	services := &Services{
		Catalog: service.NewCatalogService(st, sseManager, logger),
	}

	if setup.withSearch {
		index, err := search.Open(search.Options{InMemory: true, Logger: logger})
		require.NoError(t, err)
		t.Cleanup(func() { _ = index.Close() })

		services.Search = service.NewSearchService(index, services.Catalog, logger)
		services.Catalog.SetIndexer(services.Search)
	}

	s := NewServer(services, sseManager, cfg, logger)
	t.Cleanup(func() {
		s.Close()
		_ = st.Close()
	})

	return &testServer{
		Server:     s,
		api:        humatest.Wrap(t, s.API()),
		store:      st,
		sseManager: sseManager,
	}
}

// createItem posts body and returns the created item.
func (ts *testServer) createItem(t *testing.T, body map[string]any) ItemResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/items", body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var env testEnvelope[ItemResponse]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.True(t, env.Success)
	return env.Data
}

func shirtBody() map[string]any {
	return map[string]any{
		"name":  "Oxford Shirt",
		"brand": "Uniqlo",
		"size":  "M",
		"color": "White",
		"price": 39.9,
		"tags":  []string{"Smart", "Spring"},
		"liked": false,
	}
}

func decodeError(t *testing.T, body []byte) testErrorEnvelope {
	t.Helper()

	var env testErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &env), string(body))
	return env
}

func TestServer_UnknownRoute(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/nothing-here")
	assert.Equal(t, http.StatusNotFound, resp.Code)

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	ts := setupTestServer(t)

	req := ts.api.Do(http.MethodOptions, "/api/v1/items",
		"Origin: https://closet.example",
		"Access-Control-Request-Method: PATCH",
	)

	assert.Equal(t, "*", req.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, req.Header().Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestServer_RequestIDHeaderAllowed(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health", "Origin: https://closet.example")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "X-Request-Id", resp.Header().Get("Access-Control-Expose-Headers"))
}

func TestServer_OpenAPIListsItemRoutes(t *testing.T) {
	ts := setupTestServer(t)

	paths := ts.API().OpenAPI().Paths
	for _, p := range []string{"/api/v1/items", "/api/v1/items/{id}", "/api/v1/items/facets", "/api/v1/search/items", "/health"} {
		assert.Contains(t, paths, p)
	}
}
