package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/MrEthical07/safeher"
	"github.com/MrEthical07/safeher/report"
)

func (s *server) listReports(w http.ResponseWriter, r *http.Request) {
	all := r.URL.Query().Get("all") == "true"
	views, err := s.engine.ListReports(r.Context(), caller(r), all)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *server) createReport(w http.ResponseWriter, r *http.Request) {
	var d report.Draft
	if !decodeJSON(w, r, &d) {
		return
	}

	view, err := s.engine.CreateReport(r.Context(), caller(r), d)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Report created successfully",
		"report":  view,
	})
}

func (s *server) validateStep(w http.ResponseWriter, r *http.Request) {
	step, err := strconv.Atoi(r.URL.Query().Get("step"))
	if err != nil {
		writeAPIError(w, badRequest("Query parameter step must be a number"))
		return
	}
	var d report.Draft
	if !decodeJSON(w, r, &d) {
		return
	}

	err = s.engine.ValidateStep(step, d)
	var fields report.FieldErrors
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "errors": report.FieldErrors{}})
	case errors.As(err, &fields):
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "errors": fields})
	default:
		s.fail(w, err)
	}
}

func (s *server) getReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	view, err := s.engine.GetReport(r.Context(), caller(r), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *server) updateReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, err := readBody(w, r)
	if err != nil {
		writeAPIError(w, badRequest("Invalid JSON body"))
		return
	}
	update, err := safeher.DecodeReportUpdate(data)
	if err != nil {
		writeAPIError(w, badRequest("Invalid JSON body"))
		return
	}

	view, err := s.engine.UpdateReport(r.Context(), caller(r), id, update)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Report updated successfully",
		"report":  view,
	})
}
