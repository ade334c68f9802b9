package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/attachment"
	"github.com/MrEthical07/safeher/report"
)

// ErrorCode is the machine readable class of an API error.
type ErrorCode string

const (
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeConflict     ErrorCode = "CONFLICT"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeForbidden    ErrorCode = "FORBIDDEN"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeRateLimit    ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeUnavailable  ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Code   ErrorCode         `json:"code"`
	Fields map[string]string `json:"fields,omitempty"`
}

type apiError struct {
	status int
	body   ErrorBody
}

func newAPIError(status int, code ErrorCode, msg string) apiError {
	return apiError{status: status, body: ErrorBody{Error: msg, Code: code}}
}

func badRequest(msg string) apiError {
	return newAPIError(http.StatusBadRequest, CodeInvalidInput, msg)
}

// errorFor maps an engine error to its response. policy supplies the
// upload messages, which name the configured limits.
func errorFor(err error, policy attachment.Policy) apiError {
	var invalid *safeher.InvalidInputError
	var fields report.FieldErrors

	switch {
	case errors.As(err, &invalid):
		return badRequest(invalid.Message)
	case errors.As(err, &fields):
		e := badRequest("Validation failed")
		e.body.Fields = fields
		return e

	case errors.Is(err, attachment.ErrNoFile):
		return badRequest("No file selected")
	case errors.Is(err, attachment.ErrTypeNotAllowed):
		return badRequest(policy.TypeError())
	case errors.Is(err, attachment.ErrTooLarge):
		return badRequest(policy.SizeError())
	case errors.Is(err, attachment.ErrInvalidName):
		return badRequest("Invalid file name")
	case errors.Is(err, report.ErrInvalidStatus):
		return badRequest("Invalid status")
	case errors.Is(err, safeher.ErrAccountRoleInvalid):
		return badRequest("Invalid role. Must be user, moderator, or admin")
	case errors.Is(err, safeher.ErrSelfDeactivation):
		return badRequest("You cannot deactivate your own account")

	case errors.Is(err, report.ErrInvalidTransition):
		return newAPIError(http.StatusConflict, CodeConflict, "Invalid status transition")
	case errors.Is(err, report.ErrReportLocked):
		return newAPIError(http.StatusConflict, CodeConflict, "Report is closed and can no longer be edited")
	case errors.Is(err, safeher.ErrAccountExists):
		return newAPIError(http.StatusConflict, CodeConflict, "User with this email already exists")
	case errors.Is(err, safeher.ErrReportConflict):
		return newAPIError(http.StatusConflict, CodeConflict, "Report was modified by someone else, please retry")

	case errors.Is(err, safeher.ErrLoginRateLimited):
		return newAPIError(http.StatusTooManyRequests, CodeRateLimit, "Too many failed login attempts. Try again later.")
	case errors.Is(err, safeher.ErrAccountCreationRateLimited):
		return newAPIError(http.StatusTooManyRequests, CodeRateLimit, "Too many registration attempts. Try again later.")
	case errors.Is(err, safeher.ErrUploadRateLimited):
		return newAPIError(http.StatusTooManyRequests, CodeRateLimit, "Too many uploads. Try again later.")

	case errors.Is(err, safeher.ErrInvalidCredentials):
		return newAPIError(http.StatusUnauthorized, CodeUnauthorized, "Invalid email or password")
	case errors.Is(err, safeher.ErrUnauthorized), errors.Is(err, safeher.ErrSessionNotFound):
		return newAPIError(http.StatusUnauthorized, CodeUnauthorized, "Authorization token is missing")
	case errors.Is(err, safeher.ErrAccountDisabled):
		return newAPIError(http.StatusForbidden, CodeForbidden, "Account is deactivated")
	case errors.Is(err, safeher.ErrAccountCreationDisabled):
		return newAPIError(http.StatusForbidden, CodeForbidden, "Registration is disabled")
	case errors.Is(err, safeher.ErrPermissionDenied):
		return newAPIError(http.StatusForbidden, CodeForbidden, "Access denied")

	case errors.Is(err, safeher.ErrReportNotFound):
		return newAPIError(http.StatusNotFound, CodeNotFound, "Report not found")
	case errors.Is(err, safeher.ErrUserNotFound):
		return newAPIError(http.StatusNotFound, CodeNotFound, "User not found")
	case errors.Is(err, attachment.ErrNotFound):
		return newAPIError(http.StatusNotFound, CodeNotFound, "File not found")

	case errors.Is(err, safeher.ErrUnavailable), errors.Is(err, safeher.ErrStrictBackendDown):
		return newAPIError(http.StatusServiceUnavailable, CodeUnavailable, "Service temporarily unavailable")
	default:
		return newAPIError(http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, e apiError) {
	writeJSON(w, e.status, e.body)
}
