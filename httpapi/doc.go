// Package httpapi exposes the SafeHer engine as a JSON REST API on a
// net/http ServeMux.
//
// Every protected route runs behind [middleware.Guard] and, where a whole
// route group belongs to one role, [middleware.RequirePermission]. Engine
// errors are mapped to status codes in one place, errors.go. Error bodies are
// {"error": message, "code": CODE} with an optional "fields" map for
// per-field validation failures.
package httpapi
