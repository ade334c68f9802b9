package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrEthical07/safeher"
)

// Client facing messages for rejected requests.
const (
	MsgTokenMissing = "Authorization token is missing"
	MsgTokenExpired = "Token has expired"
	MsgTokenInvalid = "Invalid token. Please login again."
	MsgSessionEnded = "Session has ended. Please login again."
	MsgAuthBackend  = "Authentication service unavailable"
	MsgAccessDenied = "Access denied"
)

const (
	codeUnauthorized = "UNAUTHORIZED"
	codeInvalidToken = "INVALID_TOKEN"
	codeForbidden    = "FORBIDDEN"
	codeUnavailable  = "SERVICE_UNAVAILABLE"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the caller identity stored by a guard.
func AuthResultFromContext(ctx context.Context) (*safeher.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*safeher.AuthResult)
	return res, ok
}

// WithAuthResult stores res in ctx the way a guard does.
func WithAuthResult(ctx context.Context, res *safeher.AuthResult) context.Context {
	return context.WithValue(ctx, authResultContextKey{}, res)
}

// Guard validates the bearer token of every request. routeMode overrides the
// engine's configured validation mode unless it is safeher.ModeInherit.
func Guard(engine *safeher.Engine, routeMode safeher.RouteMode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeError(w, http.StatusUnauthorized, MsgTokenMissing, codeUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, http.StatusUnauthorized, MsgTokenMissing, codeUnauthorized)
				return
			}

			res, err := engine.Validate(r.Context(), token, routeMode)
			if err != nil {
				status, msg, code := rejection(err)
				writeError(w, status, msg, code)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), res)))
		})
	}
}

// RequirePermission rejects requests whose caller lacks perm. It must run
// after a guard.
func RequirePermission(engine *safeher.Engine, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res, ok := AuthResultFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, MsgTokenMissing, codeUnauthorized)
				return
			}
			if !engine.HasPermission(res, perm) {
				writeError(w, http.StatusForbidden, MsgAccessDenied, codeForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejection(err error) (int, string, string) {
	switch {
	case errors.Is(err, safeher.ErrTokenExpired):
		return http.StatusUnauthorized, MsgTokenExpired, codeUnauthorized
	case errors.Is(err, safeher.ErrTokenInvalid):
		return http.StatusUnprocessableEntity, MsgTokenInvalid, codeInvalidToken
	case errors.Is(err, safeher.ErrSessionNotFound):
		return http.StatusUnauthorized, MsgSessionEnded, codeUnauthorized
	case errors.Is(err, safeher.ErrStrictBackendDown):
		return http.StatusServiceUnavailable, MsgAuthBackend, codeUnavailable
	default:
		return http.StatusUnauthorized, MsgTokenMissing, codeUnauthorized
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func writeError(w http.ResponseWriter, status int, msg, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg, "code": code})
}
