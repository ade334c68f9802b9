// Package middleware adapts safeher.Engine token validation to net/http.
//
// # Guards
//
//   - [Guard] validates the bearer token with a per-route mode.
//   - [RequireJWTOnly] checks signature and expiry only, no Redis call.
//   - [RequireStrict] also requires the session to exist.
//   - [RequirePermission] rejects callers whose role lacks a permission.
//
// Guards write JSON error bodies of the form {"error": "...", "code": "..."}
// and store the validated [safeher.AuthResult] in the request context.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Engine calls. Authentication
// decisions are made by Engine.Validate and Engine.HasPermission.
package middleware
