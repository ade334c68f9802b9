package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrEthical07/safeher/report"
)

// AddNote appends note to r in one transaction. r is written back with its
// possibly changed status and bumped updated_at, guarded on prev like
// UpdateReport. A non-nil change is recorded in the status history.
func (s *Store) AddNote(ctx context.Context, note *report.Note, r *report.Report, prev report.Status, change *report.StatusChange) error {
	if note.CreatedAt.IsZero() {
		note.CreatedAt = s.now().UTC()
	}
	a, err := encodeReport(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO moderator_notes (report_id, moderator_id, note, created_at) VALUES (?, ?, ?, ?)`,
			note.ReportID, note.ModeratorID, note.Note, formatTime(note.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert note: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert note id: %w", err)
		}
		if err := updateReportTx(ctx, tx, r, prev, a); err != nil {
			return err
		}
		if err := insertStatusChangeTx(ctx, tx, change); err != nil {
			return err
		}
		note.ID = id
		return nil
	})
}

// NotesForReports returns the notes of each report, newest first.
func (s *Store) NotesForReports(ctx context.Context, reportIDs []int64) (map[int64][]report.Note, error) {
	out := make(map[int64][]report.Note, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(reportIDs))
	for i, id := range reportIDs {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, moderator_id, note, created_at FROM moderator_notes
		WHERE report_id IN (`+placeholders(len(reportIDs))+`)
		ORDER BY created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			n       report.Note
			created string
		)
		if err := rows.Scan(&n.ID, &n.ReportID, &n.ModeratorID, &n.Note, &created); err != nil {
			return nil, err
		}
		if n.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out[n.ReportID] = append(out[n.ReportID], n)
	}
	return out, rows.Err()
}

// StatusHistory returns the applied transitions of a report, oldest first.
func (s *Store) StatusHistory(ctx context.Context, reportID int64) ([]report.StatusChange, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, actor_id, from_status, to_status, created_at FROM report_status_changes
		WHERE report_id = ? ORDER BY created_at ASC, id ASC`, reportID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var out []report.StatusChange
	for rows.Next() {
		var (
			c        report.StatusChange
			from, to string
			created  string
		)
		if err := rows.Scan(&c.ID, &c.ReportID, &c.ActorID, &from, &to, &created); err != nil {
			return nil, err
		}
		c.From = report.Status(from)
		c.To = report.Status(to)
		if c.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
