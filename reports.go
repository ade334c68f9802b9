package safeher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/report"
	"github.com/MrEthical07/safeher/store"
)

// ReportUpdate is the body of PUT /api/reports/{id}. Owners get Owner
// applied, moderators editing someone else's report get Moderator.
type ReportUpdate struct {
	Owner     report.Patch
	Moderator report.ModeratorPatch
}

// DecodeReportUpdate reads both views of an update body.
func DecodeReportUpdate(data []byte) (ReportUpdate, error) {
	var u ReportUpdate
	if err := json.Unmarshal(data, &u.Owner); err != nil {
		return u, err
	}
	if err := json.Unmarshal(data, &u.Moderator); err != nil {
		return u, err
	}
	return u, nil
}

// ListReports returns the caller's reports, newest first. With all set,
// callers holding report.read.all get every report.
func (e *Engine) ListReports(ctx context.Context, auth *AuthResult, all bool) ([]report.View, error) {
	if err := e.require(auth, permission.ReportReadOwn); err != nil {
		return nil, err
	}

	filter := store.ReportFilter{UserID: auth.UserID}
	if all && e.HasPermission(auth, permission.ReportReadAll) {
		filter.UserID = 0
	}

	reports, err := e.store.ListReports(ctx, filter)
	if err != nil {
		return nil, unavailable(err)
	}
	return e.project(ctx, auth, reports, false)
}

// CreateReport validates d and stores it as a pending report of the caller.
func (e *Engine) CreateReport(ctx context.Context, auth *AuthResult, d report.Draft) (*report.View, error) {
	if err := e.require(auth, permission.ReportCreate); err != nil {
		return nil, err
	}

	r, err := d.Build(auth.UserID, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.checkRelated(ctx, r); err != nil {
		return nil, err
	}
	if err := e.store.CreateReport(ctx, r); err != nil {
		return nil, unavailable(err)
	}

	e.metricInc(MetricReportCreated)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventReportCreated,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
		reportID:  r.ID,
		metadata: func() map[string]string {
			return map[string]string{
				"category": string(r.Category),
				"severity": string(r.Severity),
			}
		},
	})

	return e.projectOne(ctx, auth, r, false)
}

// ValidateStep checks one page of the submission form. It returns nil,
// a report.FieldErrors, or an InvalidInputError for an unknown step.
func (e *Engine) ValidateStep(step int, d report.Draft) error {
	err := d.ValidateStep(report.Step(step), e.now())
	if errors.Is(err, report.ErrUnknownStep) {
		return invalidInput(fmt.Sprintf("Step must be between 1 and %d", report.StepCount))
	}
	return err
}

// GetReport returns one report the caller may view. The owner, moderators
// and admins also get its notes and status history.
func (e *Engine) GetReport(ctx context.Context, auth *AuthResult, id int64) (*report.View, error) {
	if err := e.require(auth, permission.ReportReadOwn); err != nil {
		return nil, err
	}
	r, err := e.visibleReport(ctx, auth, id)
	if err != nil {
		return nil, err
	}
	withDetails := r.UserID == auth.UserID || e.HasPermission(auth, permission.ReportReadAll)
	return e.projectOne(ctx, auth, r, withDetails)
}

// UpdateReport applies u to report id. The owner edits content while the
// report is open. Moderators edit status and resolution notes on reports
// they do not own. Everyone else is denied.
func (e *Engine) UpdateReport(ctx context.Context, auth *AuthResult, id int64, u ReportUpdate) (*report.View, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if auth == nil {
		return nil, ErrUnauthorized
	}

	r, err := e.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := r.Status
	viewer := auth.Viewer(e.HasPermission(auth, permission.ReportReadAll))

	var change *report.StatusChange
	switch {
	case report.IsOwner(r, viewer):
		if !e.HasPermission(auth, permission.ReportUpdateOwn) {
			return nil, ErrPermissionDenied
		}
		if err := u.Owner.Apply(r, e.now()); err != nil {
			return nil, err
		}
		if u.Owner.RelatedReportIDs.Set {
			if err := e.checkRelated(ctx, r); err != nil {
				return nil, err
			}
		}
	case e.HasPermission(auth, permission.ReportModerate):
		if change, err = u.Moderator.Apply(r, auth.UserID, e.now()); err != nil {
			return nil, err
		}
	default:
		return nil, ErrPermissionDenied
	}

	if err := e.store.UpdateReport(ctx, r, prev, change); err != nil {
		return nil, storeReportError(err)
	}

	e.metricInc(MetricReportUpdated)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventReportUpdated,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
		reportID:  r.ID,
	})
	e.emitStatusChange(ctx, change)

	return e.projectOne(ctx, auth, r, viewer.CanReadAll)
}

func (e *Engine) loadReport(ctx context.Context, id int64) (*report.Report, error) {
	r, err := e.store.ReportByID(ctx, id)
	if err != nil {
		return nil, storeReportError(err)
	}
	return r, nil
}

func (e *Engine) visibleReport(ctx context.Context, auth *AuthResult, id int64) (*report.Report, error) {
	r, err := e.loadReport(ctx, id)
	if err != nil {
		return nil, err
	}
	if !report.CanView(r, auth.Viewer(e.HasPermission(auth, permission.ReportReadAll))) {
		return nil, ErrPermissionDenied
	}
	return r, nil
}

func storeReportError(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrReportNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrReportConflict
	default:
		return unavailable(err)
	}
}

// checkRelated rejects related ids that name r itself or no report at all.
func (e *Engine) checkRelated(ctx context.Context, r *report.Report) error {
	if len(r.RelatedReportIDs) == 0 {
		return nil
	}
	for _, id := range r.RelatedReportIDs {
		if r.ID != 0 && id == r.ID {
			return report.FieldErrors{"related_report_ids": "cannot reference the report itself"}
		}
	}
	missing, err := e.store.MissingReportIDs(ctx, r.RelatedReportIDs)
	if err != nil {
		return unavailable(err)
	}
	if len(missing) > 0 {
		ids := make([]string, len(missing))
		for i, id := range missing {
			ids[i] = formatID(id)
		}
		return report.FieldErrors{"related_report_ids": "unknown report ids: " + strings.Join(ids, ", ")}
	}
	return nil
}

func (e *Engine) projectOne(ctx context.Context, auth *AuthResult, r *report.Report, withDetails bool) (*report.View, error) {
	views, err := e.project(ctx, auth, []*report.Report{r}, withDetails)
	if err != nil {
		return nil, err
	}
	if withDetails {
		history, err := e.store.StatusHistory(ctx, r.ID)
		if err != nil {
			return nil, unavailable(err)
		}
		views[0].History = nonNilHistory(history)
	}
	return &views[0], nil
}

// project renders reports for the caller, resolving owners and, when
// withNotes is set, moderator notes with their authors.
func (e *Engine) project(ctx context.Context, auth *AuthResult, reports []*report.Report, withNotes bool) ([]report.View, error) {
	viewer := auth.Viewer(e.HasPermission(auth, permission.ReportReadAll))

	ids := make([]int64, 0, len(reports))
	userIDs := make([]int64, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.ID)
		userIDs = append(userIDs, r.UserID)
	}

	var notes map[int64][]report.Note
	if withNotes {
		var err error
		notes, err = e.store.NotesForReports(ctx, ids)
		if err != nil {
			return nil, unavailable(err)
		}
		for _, list := range notes {
			for _, n := range list {
				userIDs = append(userIDs, n.ModeratorID)
			}
		}
	}

	users, err := e.store.UsersByIDs(ctx, dedupe(userIDs))
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]report.View, 0, len(reports))
	for _, r := range reports {
		var details *report.Details
		if withNotes {
			list := notes[r.ID]
			for i := range list {
				list[i].Moderator = users[list[i].ModeratorID].Person()
			}
			details = &report.Details{Notes: list}
		}
		out = append(out, report.Project(r, users[r.UserID].Person(), viewer, details))
	}
	return out, nil
}

func nonNilHistory(h []report.StatusChange) []report.StatusChange {
	if h == nil {
		return []report.StatusChange{}
	}
	return h
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
