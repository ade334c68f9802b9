// Package limiters holds the endpoint throttles other than login, which
// lives in internal/rate.
//
//   - [RegistrationLimiter] counts sign-ups per email and per client IP.
//   - [UploadLimiter] counts accepted uploads per user.
//
// Both are fixed windows (INCR, then EXPIRE on the first hit) and both are
// nil-safe: a nil limiter never limits.
package limiters
