// Package jwt issues and verifies SafeHer access tokens. Tokens carry the user
// id (sub and uid), the role, and the server-side session id (sid). Parse
// failures are split into ErrExpired and ErrInvalid so callers can answer
// them differently.
package jwt
