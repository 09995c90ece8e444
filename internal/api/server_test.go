package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T, gatherer prometheus.Gatherer) *Server {
	t.Helper()
	return New("127.0.0.1:0", func() Status {
		return Status{
			Size:              1 << 20,
			Position:          4096,
			CachedSize:        65536,
			PrebufferFinished: false,
		}
	}, gatherer)
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer(t, nil)

	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, uint64(1<<20), st.Size)
	assert.Equal(t, uint64(4096), st.Position)
	assert.Equal(t, uint64(65536), st.CachedSize)
	assert.False(t, st.PrebufferFinished)
}

func TestHealthz(t *testing.T) {
	srv := testServer(t, nil)

	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := testServer(t, reg)

	rec := httptest.NewRecorder()
	srv.srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// Without a gatherer the route is absent.
	srv2 := testServer(t, nil)
	rec2 := httptest.NewRecorder()
	srv2.srv.Handler.ServeHTTP(rec2, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec2.Code)
}
