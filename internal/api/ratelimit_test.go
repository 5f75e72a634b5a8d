package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRateLimit_LimitsWritesOnly(t *testing.T) {
	ts := setupTestServer(t, withRateLimit(1, 2))

	ts.createItem(t, shirtBody())
	ts.createItem(t, shirtBody())

	resp := ts.api.Post("/api/v1/items", shirtBody())
	require.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.Equal(t, "60", resp.Header().Get("Retry-After"))

	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "RATE_LIMITED", env.Code)

	// Reads are never limited.
	for range 5 {
		assert.Equal(t, http.StatusOK, ts.api.Get("/api/v1/items").Code)
	}
}

func TestWriteRateLimit_KeyedByClient(t *testing.T) {
	ts := setupTestServer(t, withRateLimit(1, 1))

	ts.createItem(t, shirtBody())
	assert.Equal(t, http.StatusTooManyRequests, ts.api.Post("/api/v1/items", shirtBody()).Code)

	resp := ts.api.Post("/api/v1/items", "X-Forwarded-For: 203.0.113.9", shirtBody())
	assert.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "198.51.100.1, 10.0.0.1"}, "10.0.0.2:1234", "198.51.100.1"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:1234", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"remote without port", nil, "192.0.2.11", "192.0.2.11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}

func TestIsWrite(t *testing.T) {
	for _, m := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		assert.True(t, isWrite(m), m)
	}
	for _, m := range []string{http.MethodGet, http.MethodHead, http.MethodOptions} {
		assert.False(t, isWrite(m), m)
	}
}
