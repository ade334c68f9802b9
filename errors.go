package safeher

import "errors"

var (
	// ErrUnauthorized is returned when a token is missing or rejected.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrTokenExpired is returned by Validate for a token past its expiry.
	ErrTokenExpired = errors.New("token has expired")
	// ErrTokenInvalid is returned by Validate for a malformed or forged token.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrSessionNotFound is returned in strict mode when the token's session is gone.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStrictBackendDown is returned in strict mode when Redis cannot be reached.
	ErrStrictBackendDown = errors.New("strict validation backend unavailable")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is returned when a deactivated user logs in.
	ErrAccountDisabled = errors.New("account is deactivated")
	// ErrLoginRateLimited is returned when the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrAccountExists is returned when the email is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountCreationDisabled is returned when self-registration is off.
	ErrAccountCreationDisabled = errors.New("account creation disabled")
	// ErrAccountCreationRateLimited is returned when sign-ups are throttled.
	ErrAccountCreationRateLimited = errors.New("account creation rate limited")
	// ErrAccountRoleInvalid is returned for a role outside user, moderator, admin.
	ErrAccountRoleInvalid = errors.New("invalid account role")
	// ErrSelfDeactivation is returned when an admin deactivates their own account.
	ErrSelfDeactivation = errors.New("cannot deactivate your own account")
	// ErrUserNotFound is returned for an unknown user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrReportNotFound is returned for an unknown report id.
	ErrReportNotFound = errors.New("report not found")
	// ErrPermissionDenied is returned when the caller's role lacks a permission.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrReportConflict is returned when a report changed during an update.
	ErrReportConflict = errors.New("report was modified concurrently")
	// ErrUploadRateLimited is returned when a user uploads too often.
	ErrUploadRateLimited = errors.New("upload rate limited")
	// ErrUnavailable wraps backend failures the caller cannot fix.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// InvalidInputError carries a client facing message for a bad request that
// is not a per-field validation failure.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

func invalidInput(msg string) error {
	return &InvalidInputError{Message: msg}
}
