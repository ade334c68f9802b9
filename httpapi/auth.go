package httpapi

import (
	"net/http"

	"github.com/MrEthical07/safeher"
)

func (s *server) register(w http.ResponseWriter, r *http.Request) {
	var req safeher.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.engine.Register(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "User registered successfully",
		"access_token": res.AccessToken,
		"user":         res.User,
	})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	var req safeher.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := s.engine.Login(r.Context(), req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": res.AccessToken,
		"role":         res.User.Role,
		"user":         res.User,
	})
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Logout(r.Context(), caller(r)); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

func (s *server) me(w http.ResponseWriter, r *http.Request) {
	user, err := s.engine.Me(r.Context(), caller(r))
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
