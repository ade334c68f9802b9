// Package safeher is the SafeHer harassment reporting service: account
// registration and login, the report lifecycle, moderation, administration
// and evidence uploads.
//
// The service is assembled with [Builder] and exposed as an [Engine]. Engine
// methods are safe to call from multiple goroutines after [Builder.Build].
//
// # Architecture boundaries
//
// safeher is the domain surface. Persistence lives in the store package,
// sessions and throttles in Redis through session and internal/rate, and
// uploaded objects behind attachment.Store. The HTTP layer in httpapi only
// decodes requests, calls Engine methods and maps sentinel errors to status
// codes.
//
// # Token validation
//
// Validate checks the JWT signature and expiry. In ModeStrict it also
// requires the token's session to exist in Redis, so Logout and account
// deactivation revoke tokens immediately. ModeJWTOnly skips that round trip
// and tokens stay valid until they expire.
package safeher
