package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/MrEthical07/safeher/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	full_name TEXT NOT NULL,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);

CREATE TABLE IF NOT EXISTS reports (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	report_number TEXT,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	category TEXT NOT NULL,
	evidence TEXT,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_user ON reports(user_id);
CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);

CREATE TABLE IF NOT EXISTS moderator_notes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id INTEGER NOT NULL REFERENCES reports(id),
	moderator_id INTEGER NOT NULL REFERENCES users(id),
	note TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_report ON moderator_notes(report_id);
CREATE INDEX IF NOT EXISTS idx_notes_moderator ON moderator_notes(moderator_id);

CREATE TABLE IF NOT EXISTS report_status_changes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	report_id INTEGER NOT NULL REFERENCES reports(id),
	actor_id INTEGER NOT NULL REFERENCES users(id),
	from_status TEXT NOT NULL,
	to_status TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_status_changes_report ON report_status_changes(report_id);
`

// Migration adds a column that older databases may lack.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// reportColumns are the report fields added after the first schema. Databases
// created by the original tables gain them in place.
var reportColumns = []Migration{
	{"reports", "report_number", "TEXT"},
	{"reports", "subcategory", "TEXT"},
	{"reports", "tags", "TEXT"},
	{"reports", "location", "TEXT"},
	{"reports", "incident_date", "TEXT"},
	{"reports", "severity", "TEXT NOT NULL DEFAULT 'medium'"},
	{"reports", "urgency", "TEXT NOT NULL DEFAULT 'normal'"},
	{"reports", "file_attachments", "TEXT"},
	{"reports", "contact_phone", "TEXT"},
	{"reports", "preferred_contact_method", "TEXT NOT NULL DEFAULT 'email'"},
	{"reports", "follow_up_requested", "INTEGER NOT NULL DEFAULT 0"},
	{"reports", "witnesses", "TEXT"},
	{"reports", "perpetrator_info", "TEXT"},
	{"reports", "anonymous_report", "INTEGER NOT NULL DEFAULT 0"},
	{"reports", "related_report_ids", "TEXT"},
	{"reports", "resolution_notes", "TEXT"},
}

// MigrationResult reports what Migrate changed.
type MigrationResult struct {
	ColumnsAdded    []string
	NumbersAssigned int
}

// Migrate creates missing tables, adds missing report columns, and assigns
// report numbers to rows that predate them. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) (MigrationResult, error) {
	var res MigrationResult
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return res, fmt.Errorf("failed to create schema: %w", err)
	}

	for _, m := range reportColumns {
		exists, err := s.columnExists(ctx, m.Table, m.Column)
		if err != nil {
			return res, err
		}
		if exists {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return res, fmt.Errorf("add column %s.%s: %w", m.Table, m.Column, err)
		}
		res.ColumnsAdded = append(res.ColumnsAdded, m.Table+"."+m.Column)
	}

	// ALTER TABLE cannot add a UNIQUE column, so uniqueness lives in an index.
	if _, err := s.db.ExecContext(ctx, `CREATE UNIQUE INDEX IF NOT EXISTS idx_reports_number ON reports(report_number)`); err != nil {
		return res, fmt.Errorf("failed to index report numbers: %w", err)
	}

	n, err := s.backfillReportNumbers(ctx)
	if err != nil {
		return res, err
	}
	res.NumbersAssigned = n
	return res, nil
}

func (s *Store) columnExists(ctx context.Context, table, column string) (bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

func (s *Store) backfillReportNumbers(ctx context.Context) (int, error) {
	type pending struct {
		id        int64
		createdAt string
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, created_at FROM reports WHERE report_number IS NULL OR report_number = ''`)
	if err != nil {
		return 0, fmt.Errorf("scan report numbers: %w", err)
	}
	var todo []pending
	for rows.Next() {
		var p pending
		if err := rows.Scan(&p.id, &p.createdAt); err != nil {
			rows.Close()
			return 0, err
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, p := range todo {
		created, err := parseTime(p.createdAt)
		if err != nil {
			return 0, err
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE reports SET report_number = ? WHERE id = ?`, report.Number(p.id, created), p.id); err != nil {
			return 0, fmt.Errorf("assign report number: %w", err)
		}
	}
	return len(todo), nil
}
