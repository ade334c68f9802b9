package httpapi

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/safeher"
)

func (s *server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.engine.ListUsers(r.Context(), caller(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *server) createUser(w http.ResponseWriter, r *http.Request) {
	var req safeher.CreateUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := s.engine.CreateUser(r.Context(), caller(r), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": roleTitle(user.Role) + " created successfully",
		"user":    user,
	})
}

func (s *server) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.IsActive == nil {
		writeAPIError(w, badRequest("is_active is required"))
		return
	}

	user, err := s.engine.SetUserActive(r.Context(), caller(r), id, *req.IsActive)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "User updated successfully",
		"user":    user,
	})
}

func (s *server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.Stats(r.Context(), caller(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *server) exportReports(w http.ResponseWriter, r *http.Request) {
	// Buffered so a failure can still become a JSON error.
	var buf bytes.Buffer
	if err := s.engine.ExportReportsCSV(r.Context(), caller(r), &buf); err != nil {
		s.fail(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/csv; charset=utf-8")
	h.Set("Content-Disposition", `attachment; filename="`+safeher.ExportFilename+`"`)
	h.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func roleTitle(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + role[1:]
}
