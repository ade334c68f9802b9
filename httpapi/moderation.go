package httpapi

import (
	"net/http"

	"github.com/MrEthical07/safeher"
)

func (s *server) queue(w http.ResponseWriter, r *http.Request) {
	views, err := s.engine.Queue(r.Context(), caller(r), safeher.QueueFilter{Status: r.URL.Query().Get("status")})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) reviewed(w http.ResponseWriter, r *http.Request) {
	views, err := s.engine.Reviewed(r.Context(), caller(r), safeher.QueueFilter{Status: r.URL.Query().Get("status")})
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) moderatorReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.ModeratorReport(r.Context(), caller(r), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) addNote(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req safeher.AddNoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	note, view, err := s.engine.AddNote(r.Context(), caller(r), id, req)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Note added successfully",
		"note":    note,
		"report":  view,
	})
}
