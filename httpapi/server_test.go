package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/metrics/export/prometheus"
	"github.com/MrEthical07/safeher/report"
	"github.com/MrEthical07/safeher/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testPassword = "correct-password-123"

type apiEnv struct {
	handler http.Handler
	engine  *safeher.Engine
	redis   *miniredis.Miniredis
}

func newAPIEnv(t *testing.T, mutate func(*safeher.Config), logger *zap.Logger) *apiEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	_, err = s.Migrate(context.Background())
	require.NoError(t, err)

	cfg := safeher.DefaultConfig()
	cfg.JWT.Secret = "httpapi-secret-0123456789"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Storage.Dir = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := safeher.New().WithConfig(cfg).WithRedis(rdb).WithStore(s).Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	opts := Options{Logger: logger, Metrics: prometheus.NewExporter(engine).Handler()}
	return &apiEnv{handler: NewRouter(engine, opts), engine: engine, redis: mr}
}

// call sends body as JSON unless it is already a string.
func (env *apiEnv) call(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body: %s", rec.Body.String())
	return out
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code ErrorCode) ErrorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, "body: %s", rec.Body.String())
	body := decode[ErrorBody](t, rec)
	assert.Equal(t, code, body.Code)
	return body
}

type loginBody struct {
	Message     string        `json:"message"`
	AccessToken string        `json:"access_token"`
	Role        string        `json:"role"`
	User        report.Person `json:"user"`
}

// register signs up email through the API and returns its token.
func (env *apiEnv) register(t *testing.T, email string) string {
	t.Helper()
	rec := env.call(t, http.MethodPost, "/api/auth/register", "", safeher.RegisterRequest{
		Email: email, Password: testPassword, FullName: "Test User",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[loginBody](t, rec).AccessToken
}

func (env *apiEnv) login(t *testing.T, email string) string {
	t.Helper()
	rec := env.call(t, http.MethodPost, "/api/auth/login", "", safeher.LoginRequest{Email: email, Password: testPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[loginBody](t, rec).AccessToken
}

func (env *apiEnv) admin(t *testing.T) string {
	t.Helper()
	_, _, err := env.engine.SeedAdmin(context.Background(), "admin@example.com", testPassword, "Admin")
	require.NoError(t, err)
	return env.login(t, "admin@example.com")
}

// moderator provisions a moderator through the admin API and logs in.
func (env *apiEnv) moderator(t *testing.T, adminToken string) string {
	t.Helper()
	rec := env.call(t, http.MethodPost, "/api/admin/users", adminToken, safeher.CreateUserRequest{
		Email: "mod@example.com", Password: testPassword, FullName: "Mod", Role: "moderator",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return env.login(t, "mod@example.com")
}

func testDraft() report.Draft {
	return report.Draft{
		Title:        "Repeated messages",
		Description:  "Someone keeps messaging me after I blocked them.",
		Category:     "online",
		IncidentDate: "2025-02-20T18:30",
		Severity:     "high",
	}
}

type reportEnvelope struct {
	Message string      `json:"message"`
	Report  report.View `json:"report"`
}

func (env *apiEnv) createReport(t *testing.T, token string) report.View {
	t.Helper()
	rec := env.call(t, http.MethodPost, "/api/reports", token, testDraft())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[reportEnvelope](t, rec).Report
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
