// Package store persists users, reports, moderator notes, and status history in
// SQLite through database/sql and the pure-Go modernc.org/sqlite driver.
//
// The store is a plain repository: it enforces referential and uniqueness
// constraints but no business rules. Status transitions are validated by the
// report package before they reach [Store.UpdateReport] or [Store.AddNote].
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when an email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrConflict is returned when a row changed underneath an update.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrUnsupportedURL is returned for database URLs other than SQLite.
	ErrUnsupportedURL = errors.New("unsupported database url")
)

// Store is the SQLite repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// ParseDatabaseURL turns a sqlite:/// URL (or a bare path) into a driver DSN.
func ParseDatabaseURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	switch {
	case url == "":
		return "", fmt.Errorf("%w: empty", ErrUnsupportedURL)
	case url == ":memory:", url == "sqlite://:memory:", url == "sqlite:///:memory:":
		return ":memory:", nil
	case strings.HasPrefix(url, "sqlite:///"):
		return strings.TrimPrefix(url, "sqlite:///"), nil
	case strings.HasPrefix(url, "sqlite://"):
		return strings.TrimPrefix(url, "sqlite://"), nil
	case strings.Contains(url, "://"):
		return "", fmt.Errorf("%w: %s", ErrUnsupportedURL, url[:strings.Index(url, "://")])
	default:
		return url, nil
	}
}

// Open opens the database named by url. The schema is not touched; call Migrate.
func Open(ctx context.Context, url string) (*Store, error) {
	dsn, err := ParseDatabaseURL(url)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite serializes writers; a single connection also keeps :memory: alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{"PRAGMA foreign_keys = ON", "PRAGMA busy_timeout = 5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to configure database: %w", err)
		}
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithClock replaces the clock used for created_at and updated_at defaults.
func (s *Store) WithClock(now func() time.Time) *Store {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// timeLayout is fixed width so that TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		// rows written by older tooling may use SQLite's CURRENT_TIMESTAMP format
		t, err = time.Parse("2006-01-02 15:04:05", s)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
		}
	}
	return t.UTC(), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?,", n-1) + "?"
}
