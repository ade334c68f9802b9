package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/safeher/report"
)

const reportColumnList = `id, user_id, report_number, title, description, category, subcategory, tags,
	location, incident_date, severity, urgency, evidence, file_attachments, contact_phone,
	preferred_contact_method, follow_up_requested, witnesses, perpetrator_info, anonymous_report,
	related_report_ids, status, resolution_notes, created_at, updated_at`

// ReportFilter narrows ListReports. Zero values match everything.
type ReportFilter struct {
	UserID   int64
	Statuses []report.Status
	// NotedBy limits the result to reports the given moderator annotated.
	NotedBy int64
	// ByUpdated orders by updated_at instead of created_at, newest first.
	ByUpdated bool
}

func scanReport(row rowScanner) (*report.Report, error) {
	var (
		r                                      report.Report
		number, subcategory, tags, location    sql.NullString
		incident, evidence, attachments, phone sql.NullString
		witnesses, perpetrator, related, notes sql.NullString
		category, severity, urgency, method    string
		status, created, updated               string
	)
	err := row.Scan(
		&r.ID, &r.UserID, &number, &r.Title, &r.Description, &category, &subcategory, &tags,
		&location, &incident, &severity, &urgency, &evidence, &attachments, &phone,
		&method, &r.FollowUp, &witnesses, &perpetrator, &r.Anonymous,
		&related, &status, &notes, &created, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	r.Number = number.String
	r.Category = report.Category(category)
	r.Subcategory = subcategory.String
	r.Location = location.String
	r.Severity = report.Severity(severity)
	r.Urgency = report.Urgency(urgency)
	r.Evidence = evidence.String
	r.ContactPhone = phone.String
	r.ContactMethod = report.ContactMethod(method)
	r.Witnesses = witnesses.String
	r.PerpetratorInfo = perpetrator.String
	r.Status = report.Status(status)
	r.ResolutionNotes = notes.String

	if err := decodeJSONColumn(tags, &r.Tags); err != nil {
		return nil, fmt.Errorf("report %d tags: %w", r.ID, err)
	}
	if err := decodeJSONColumn(attachments, &r.Attachments); err != nil {
		return nil, fmt.Errorf("report %d attachments: %w", r.ID, err)
	}
	if err := decodeJSONColumn(related, &r.RelatedReportIDs); err != nil {
		return nil, fmt.Errorf("report %d related ids: %w", r.ID, err)
	}
	if incident.Valid && incident.String != "" {
		t, err := parseTime(incident.String)
		if err != nil {
			return nil, err
		}
		r.IncidentDate = &t
	}
	if r.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return &r, nil
}

func decodeJSONColumn(col sql.NullString, dst any) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), dst)
}

func encodeJSONColumn[T any](v []T) (sql.NullString, error) {
	if len(v) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

type reportArgs struct {
	tags, attachments, related sql.NullString
	incident                   sql.NullString
}

func encodeReport(r *report.Report) (reportArgs, error) {
	var (
		a   reportArgs
		err error
	)
	if a.tags, err = encodeJSONColumn(r.Tags); err != nil {
		return a, err
	}
	if a.attachments, err = encodeJSONColumn(r.Attachments); err != nil {
		return a, err
	}
	if a.related, err = encodeJSONColumn(r.RelatedReportIDs); err != nil {
		return a, err
	}
	if r.IncidentDate != nil {
		a.incident = nullString(formatTime(*r.IncidentDate))
	}
	return a, nil
}

// CreateReport inserts r, then assigns its ID and report number.
func (s *Store) CreateReport(ctx context.Context, r *report.Report) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	a, err := encodeReport(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO reports (
			user_id, title, description, category, subcategory, tags, location, incident_date,
			severity, urgency, evidence, file_attachments, contact_phone, preferred_contact_method,
			follow_up_requested, witnesses, perpetrator_info, anonymous_report, related_report_ids,
			status, resolution_notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.UserID, r.Title, r.Description, string(r.Category), nullString(r.Subcategory), a.tags,
			nullString(r.Location), a.incident, string(r.Severity), string(r.Urgency), nullString(r.Evidence),
			a.attachments, nullString(r.ContactPhone), string(r.ContactMethod), r.FollowUp,
			nullString(r.Witnesses), nullString(r.PerpetratorInfo), r.Anonymous, a.related,
			string(r.Status), nullString(r.ResolutionNotes), formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert report: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert report id: %w", err)
		}
		number := report.Number(id, r.CreatedAt)
		if _, err := tx.ExecContext(ctx, `UPDATE reports SET report_number = ? WHERE id = ?`, number, id); err != nil {
			return fmt.Errorf("assign report number: %w", err)
		}
		r.ID = id
		r.Number = number
		return nil
	})
}

// ReportByID loads one report.
func (s *Store) ReportByID(ctx context.Context, id int64) (*report.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumnList+` FROM reports WHERE id = ?`, id)
	return scanReport(row)
}

// ListReports returns reports matching f, newest first.
func (s *Store) ListReports(ctx context.Context, f ReportFilter) ([]*report.Report, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if len(f.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(f.Statuses))+")")
		for _, st := range f.Statuses {
			args = append(args, string(st))
		}
	}
	if f.NotedBy != 0 {
		where = append(where, "id IN (SELECT report_id FROM moderator_notes WHERE moderator_id = ?)")
		args = append(args, f.NotedBy)
	}

	query := `SELECT ` + reportColumnList + ` FROM reports`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.ByUpdated {
		query += " ORDER BY updated_at DESC, id DESC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	var out []*report.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MissingReportIDs returns the ids that do not name an existing report.
func (s *Store) MissingReportIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM reports WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query report ids: %w", err)
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// UpdateReport writes r back. The row must still be in status prev, otherwise
// ErrConflict is returned. A non-nil change is appended to the status history
// in the same transaction.
func (s *Store) UpdateReport(ctx context.Context, r *report.Report, prev report.Status, change *report.StatusChange) error {
	a, err := encodeReport(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := updateReportTx(ctx, tx, r, prev, a); err != nil {
			return err
		}
		return insertStatusChangeTx(ctx, tx, change)
	})
}

func updateReportTx(ctx context.Context, tx *sql.Tx, r *report.Report, prev report.Status, a reportArgs) error {
	res, err := tx.ExecContext(ctx, `UPDATE reports SET
		title = ?, description = ?, category = ?, subcategory = ?, tags = ?, location = ?,
		incident_date = ?, severity = ?, urgency = ?, evidence = ?, file_attachments = ?,
		contact_phone = ?, preferred_contact_method = ?, follow_up_requested = ?, witnesses = ?,
		perpetrator_info = ?, anonymous_report = ?, related_report_ids = ?, status = ?,
		resolution_notes = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		r.Title, r.Description, string(r.Category), nullString(r.Subcategory), a.tags, nullString(r.Location),
		a.incident, string(r.Severity), string(r.Urgency), nullString(r.Evidence), a.attachments,
		nullString(r.ContactPhone), string(r.ContactMethod), r.FollowUp, nullString(r.Witnesses),
		nullString(r.PerpetratorInfo), r.Anonymous, a.related, string(r.Status),
		nullString(r.ResolutionNotes), formatTime(r.UpdatedAt),
		r.ID, string(prev),
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n == 1 {
		return nil
	}

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM reports WHERE id = ?`, r.ID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	return ErrConflict
}

func insertStatusChangeTx(ctx context.Context, tx *sql.Tx, change *report.StatusChange) error {
	if change == nil {
		return nil
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO report_status_changes (report_id, actor_id, from_status, to_status, created_at) VALUES (?, ?, ?, ?, ?)`,
		change.ReportID, change.ActorID, string(change.From), string(change.To), formatTime(change.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert status change: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert status change id: %w", err)
	}
	change.ID = id
	return nil
}

// CountReportsByStatus returns the number of reports per status.
func (s *Store) CountReportsByStatus(ctx context.Context) (map[report.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM reports GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	defer rows.Close()

	out := map[report.Status]int{}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[report.Status(status)] = n
	}
	return out, rows.Err()
}
