package middleware

import (
	"net/http"

	"github.com/MrEthical07/safeher"
)

// RequireStrict requires the token's session to exist in Redis, so logout
// and deactivation take effect immediately.
func RequireStrict(engine *safeher.Engine) func(http.Handler) http.Handler {
	return Guard(engine, safeher.ModeStrict)
}
