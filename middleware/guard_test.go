package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestEngine(t *testing.T, now func() time.Time) (*safeher.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	s, err := store.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if _, err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := safeher.DefaultConfig()
	cfg.JWT.Secret = "middleware-secret-0123456789"
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Storage.Dir = t.TempDir()

	engine, err := safeher.New().WithConfig(cfg).WithRedis(rdb).WithStore(s).WithClock(now).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func register(t *testing.T, engine *safeher.Engine) *safeher.LoginResult {
	t.Helper()
	res, err := engine.Register(context.Background(), safeher.RegisterRequest{
		Email: "alice@example.com", Password: "correct-password-123", FullName: "Alice",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res, ok := AuthResultFromContext(r.Context())
		if !ok || res.UserID == 0 {
			t.Fatalf("expected auth result in context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(h http.Handler, authorization string) (int, map[string]string) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec.Code, body
}

func TestGuardResponses(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	res := register(t, engine)
	h := Guard(engine, safeher.ModeInherit)(okHandler(t))

	tests := []struct {
		name   string
		header string
		status int
		msg    string
	}{
		{"missing", "", http.StatusUnauthorized, MsgTokenMissing},
		{"not bearer", "Basic abc", http.StatusUnauthorized, MsgTokenMissing},
		{"malformed", "Bearer nope", http.StatusUnprocessableEntity, MsgTokenInvalid},
		{"valid", "Bearer " + res.AccessToken, http.StatusNoContent, ""},
		{"lowercase scheme", "bearer " + res.AccessToken, http.StatusNoContent, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := serve(h, tc.header)
			if status != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, status)
			}
			if body["error"] != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, body["error"])
			}
		})
	}
}

func TestGuardExpiredToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	engine, _ := newTestEngine(t, func() time.Time { return now })
	res := register(t, engine)

	now = now.Add(25 * time.Hour)
	status, body := serve(RequireJWTOnly(engine)(okHandler(t)), "Bearer "+res.AccessToken)
	if status != http.StatusUnauthorized || body["error"] != MsgTokenExpired {
		t.Fatalf("expected expired token, got %d %q", status, body["error"])
	}
}

func TestGuardModesAfterLogout(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	res := register(t, engine)

	if err := engine.Logout(context.Background(), &safeher.AuthResult{UserID: *res.User.ID, SessionID: res.SessionID}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if status, _ := serve(RequireJWTOnly(engine)(okHandler(t)), "Bearer "+res.AccessToken); status != http.StatusNoContent {
		t.Fatalf("jwt_only guard must accept a logged out token, got %d", status)
	}
	status, body := serve(RequireStrict(engine)(okHandler(t)), "Bearer "+res.AccessToken)
	if status != http.StatusUnauthorized || body["error"] != MsgSessionEnded {
		t.Fatalf("expected ended session, got %d %q", status, body["error"])
	}
}

func TestGuardBackendDown(t *testing.T) {
	engine, mr := newTestEngine(t, nil)
	res := register(t, engine)

	mr.SetError("LOADING")
	defer mr.SetError("")

	status, body := serve(RequireStrict(engine)(okHandler(t)), "Bearer "+res.AccessToken)
	if status != http.StatusServiceUnavailable || body["code"] != codeUnavailable {
		t.Fatalf("expected 503, got %d %v", status, body)
	}
}

func TestRequirePermission(t *testing.T) {
	engine, _ := newTestEngine(t, nil)
	res := register(t, engine)

	h := Guard(engine, safeher.ModeInherit)(RequirePermission(engine, permission.UserManage)(okHandler(t)))
	status, body := serve(h, "Bearer "+res.AccessToken)
	if status != http.StatusForbidden || body["error"] != MsgAccessDenied {
		t.Fatalf("expected 403, got %d %v", status, body)
	}

	h = Guard(engine, safeher.ModeInherit)(RequirePermission(engine, permission.ReportCreate)(okHandler(t)))
	if status, _ := serve(h, "Bearer "+res.AccessToken); status != http.StatusNoContent {
		t.Fatalf("expected access, got %d", status)
	}

	bare := RequirePermission(engine, permission.ReportCreate)(okHandler(t))
	if status, _ := serve(bare, ""); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a guard, got %d", status)
	}
}
