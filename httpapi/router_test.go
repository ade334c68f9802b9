package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestHealth(t *testing.T) {
	env := newAPIEnv(t, nil, nil)

	rec := env.call(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"status": "ok", "message": "SafeHer API is running"},
		decode[map[string]string](t, rec))
}

func TestReadyReportsBackendOutage(t *testing.T) {
	env := newAPIEnv(t, nil, nil)

	rec := env.call(t, http.MethodGet, "/api/health/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	env.redis.SetError("LOADING")
	defer env.redis.SetError("")
	rec = env.call(t, http.MethodGet, "/api/health/ready", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, true, body["database"])
	assert.Equal(t, false, body["redis"])
}

func TestCORS(t *testing.T) {
	env := newAPIEnv(t, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/reports", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "Authorization")

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMethodNotAllowed(t *testing.T) {
	env := newAPIEnv(t, nil, nil)

	rec := env.call(t, http.MethodDelete, "/api/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	env := newAPIEnv(t, nil, nil)

	env.call(t, http.MethodGet, "/api/health", "", nil)
	env.call(t, http.MethodGet, "/api/health", "", nil)

	rec := env.call(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "safeher_http_requests_total 2")
	assert.Contains(t, rec.Body.String(), "safeher_http_request_duration_seconds_count 2")
}

func TestRequestLogging(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := newAPIEnv(t, nil, zap.New(core))

	env.call(t, http.MethodGet, "/api/reports", "", nil)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/api/reports", fields["path"])
	assert.EqualValues(t, http.StatusUnauthorized, fields["status"])
	assert.True(t, strings.HasPrefix(entries[0].LoggerName, "http"))
}

func TestInvalidPathID(t *testing.T) {
	env := newAPIEnv(t, nil, nil)
	token := env.register(t, "user@example.com")

	rec := env.call(t, http.MethodGet, "/api/reports/abc", token, nil)
	requireError(t, rec, http.StatusNotFound, CodeNotFound)
}
