package middleware

import (
	"net/http"

	"github.com/MrEthical07/safeher"
)

// RequireJWTOnly overrides the validation mode to [safeher.ModeJWTOnly] for
// the wrapped handler, skipping Redis entirely.
func RequireJWTOnly(engine *safeher.Engine) func(http.Handler) http.Handler {
	return Guard(engine, safeher.ModeJWTOnly)
}
