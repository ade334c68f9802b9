package safeher

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/report"
	"github.com/MrEthical07/safeher/store"
)


func parseStatusFilter(status string) ([]report.Status, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" || status == "all" {
		return nil, nil
	}
	st, err := report.ParseStatus(status)
	if err != nil {
		return nil, invalidInput("Invalid status filter")
	}
	return []report.Status{st}, nil
}

// Queue returns the moderation queue, newest first with notes. An empty or
// "all" status means pending and in_review.
func (e *Engine) Queue(ctx context.Context, auth *AuthResult, f QueueFilter) ([]report.View, error) {
	if err := e.require(auth, permission.ReportReadAll); err != nil {
		return nil, err
	}
	statuses, err := parseStatusFilter(f.Status)
	if err != nil {
		return nil, err
	}
	if statuses == nil {
		statuses = report.QueueStatuses
	}

	reports, err := e.store.ListReports(ctx, store.ReportFilter{Statuses: statuses})
	if err != nil {
		return nil, unavailable(err)
	}
	return e.project(ctx, auth, reports, true)
}

// ModeratorReport returns one report with its notes and status history.
func (e *Engine) ModeratorReport(ctx context.Context, auth *AuthResult, id int64) (*report.View, error) {
	if err := e.require(auth, permission.ReportReadAll); err != nil {
		return nil, err
	}
	r, err := e.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.projectOne(ctx, auth, r, true)
}

// Reviewed lists the reports the caller has noted, most recently updated
// first. An empty or "all" status applies no status filter.
func (e *Engine) Reviewed(ctx context.Context, auth *AuthResult, f QueueFilter) ([]report.View, error) {
	if err := e.require(auth, permission.NoteCreate); err != nil {
		return nil, err
	}
	statuses, err := parseStatusFilter(f.Status)
	if err != nil {
		return nil, err
	}

	reports, err := e.store.ListReports(ctx, store.ReportFilter{
		Statuses:  statuses,
		NotedBy:   auth.UserID,
		ByUpdated: true,
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return e.project(ctx, auth, reports, true)
}

// AddNote appends a note to report id and optionally changes its status.
// Both are written in one transaction.
func (e *Engine) AddNote(ctx context.Context, auth *AuthResult, id int64, req AddNoteRequest) (*report.Note, *report.View, error) {
	if err := e.require(auth, permission.NoteCreate); err != nil {
		return nil, nil, err
	}

	text := strings.TrimSpace(req.Note)
	if text == "" {
		return nil, nil, invalidInput("Note is required")
	}
	if utf8.RuneCountInString(text) > report.MaxNotesLen {
		return nil, nil, report.FieldErrors{"note": "must be at most 10000 characters"}
	}
	if strings.TrimSpace(req.Status) != "" && !e.HasPermission(auth, permission.ReportModerate) {
		return nil, nil, ErrPermissionDenied
	}

	r, err := e.loadReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	prev := r.Status
	now := e.now().UTC()

	change, err := report.ApplyStatus(r, req.Status, auth.UserID, now)
	if err != nil {
		return nil, nil, err
	}
	r.UpdatedAt = now

	note := &report.Note{
		ReportID:    r.ID,
		ModeratorID: auth.UserID,
		Note:        text,
		CreatedAt:   now,
	}
	if err := e.store.AddNote(ctx, note, r, prev, change); err != nil {
		return nil, nil, storeReportError(err)
	}

	if u, err := e.store.UserByID(ctx, auth.UserID); err == nil {
		note.Moderator = u.Person()
	}

	e.metricInc(MetricNoteAdded)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventNoteAdded,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
		reportID:  r.ID,
	})
	e.emitStatusChange(ctx, change)

	view, err := e.projectOne(ctx, auth, r, true)
	if err != nil {
		return nil, nil, err
	}
	return note, view, nil
}
