package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/safeher/report"
)

var testNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), "sqlite:///:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	s.WithClock(func() time.Time { return testNow })
	_, err = s.Migrate(context.Background())
	require.NoError(t, err)
	return s
}

func seedUser(t *testing.T, s *Store, email, role string) *User {
	t.Helper()
	u := &User{Email: email, PasswordHash: "hash", Role: role, FullName: "Test " + role, IsActive: true}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func seedReport(t *testing.T, s *Store, userID int64, title string) *report.Report {
	t.Helper()
	r, err := report.Draft{
		Title:       title,
		Description: "Something happened on the way to work.",
		Category:    "physical",
		Tags:        []string{"bus"},
	}.Build(userID, testNow)
	require.NoError(t, err)
	require.NoError(t, s.CreateReport(context.Background(), r))
	return r
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "sqlite:///safeher.db", want: "safeher.db"},
		{in: "sqlite:////var/lib/safeher.db", want: "/var/lib/safeher.db"},
		{in: "sqlite:///:memory:", want: ":memory:"},
		{in: ":memory:", want: ":memory:"},
		{in: "data/app.db", want: "data/app.db"},
		{in: "postgres://localhost/db", wantErr: true},
		{in: "  ", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseDatabaseURL(tc.in)
		if tc.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedURL, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "Alice@Example.com", "user")

	err := s.CreateUser(context.Background(), &User{Email: " alice@example.com ", PasswordHash: "x", Role: "user", FullName: "A", IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	u, err := s.UserByEmail(context.Background(), "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.IsActive)
	assert.Equal(t, testNow, u.CreatedAt)
}

func TestUserLookupsAndActivation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com", "user")
	m := seedUser(t, s, "m@example.com", "moderator")

	_, err := s.UserByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	byID, err := s.UsersByIDs(ctx, []int64{a.ID, m.ID, 999})
	require.NoError(t, err)
	assert.Len(t, byID, 2)

	u, err := s.SetUserActive(ctx, a.ID, false)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	_, err = s.SetUserActive(ctx, 999, false)
	assert.ErrorIs(t, err, ErrNotFound)

	counts, err := s.CountUsersByRole(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"user": 1, "moderator": 1}, counts)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, m.ID, users[0].ID)
}

func TestCreateReportAssignsNumberAndRoundTrips(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "a@example.com", "user")

	incident := testNow.Add(-48 * time.Hour)
	r, err := report.Draft{
		Title:        "Followed home",
		Description:  "A man followed me from the station.",
		Category:     "physical",
		IncidentDate: incident.Format(time.RFC3339),
		Evidence:     "Neighbour saw it",
		Attachments: []report.Attachment{{
			Name: "photo.png", Type: "image/png", URL: "/uploads/20250314_120000_photo.png", Size: 42, UploadedAt: testNow,
		}},
		ContactPhone:  "+1 555 0100",
		ContactMethod: "phone",
		Anonymous:     true,
	}.Build(u.ID, testNow)
	require.NoError(t, err)
	require.NoError(t, s.CreateReport(context.Background(), r))

	assert.NotZero(t, r.ID)
	assert.Equal(t, report.Number(r.ID, testNow), r.Number)

	got, err := s.ReportByID(context.Background(), r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestListReportsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "a@example.com", "user")
	b := seedUser(t, s, "b@example.com", "user")
	mod := seedUser(t, s, "m@example.com", "moderator")

	r1 := seedReport(t, s, a.ID, "first")
	s.WithClock(func() time.Time { return testNow.Add(time.Hour) })
	r2 := seedReport(t, s, b.ID, "second")
	r3 := seedReport(t, s, a.ID, "third")

	mine, err := s.ListReports(ctx, ReportFilter{UserID: a.ID})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, r3.ID, mine[0].ID)
	assert.Equal(t, r1.ID, mine[1].ID)

	prev := r2.Status
	change, err := report.ApplyStatus(r2, "resolved", mod.ID, testNow.Add(2*time.Hour))
	require.Error(t, err, "pending cannot jump to resolved")
	assert.Nil(t, change)

	change, err = report.ApplyStatus(r2, "in_review", mod.ID, testNow.Add(2*time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.AddNote(ctx, &report.Note{ReportID: r2.ID, ModeratorID: mod.ID, Note: "looking"}, r2, prev, change))

	queue, err := s.ListReports(ctx, ReportFilter{Statuses: report.QueueStatuses})
	require.NoError(t, err)
	assert.Len(t, queue, 3)

	inReview, err := s.ListReports(ctx, ReportFilter{Statuses: []report.Status{report.StatusInReview}})
	require.NoError(t, err)
	require.Len(t, inReview, 1)
	assert.Equal(t, r2.ID, inReview[0].ID)

	reviewed, err := s.ListReports(ctx, ReportFilter{NotedBy: mod.ID, ByUpdated: true})
	require.NoError(t, err)
	require.Len(t, reviewed, 1)
	assert.Equal(t, r2.ID, reviewed[0].ID)

	counts, err := s.CountReportsByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[report.Status]int{report.StatusPending: 2, report.StatusInReview: 1}, counts)
}

func TestUpdateReportDetectsConflicts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com", "user")
	r := seedReport(t, s, u.ID, "title")

	r.Title = "changed"
	require.NoError(t, s.UpdateReport(ctx, r, report.StatusPending, nil))

	err := s.UpdateReport(ctx, r, report.StatusInReview, nil)
	assert.ErrorIs(t, err, ErrConflict)

	r.ID = 999
	err = s.UpdateReport(ctx, r, report.StatusPending, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddNoteRecordsHistory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com", "user")
	mod := seedUser(t, s, "m@example.com", "moderator")
	r := seedReport(t, s, u.ID, "title")

	for i, to := range []string{"in_review", "", "resolved"} {
		prev := r.Status
		at := testNow.Add(time.Duration(i+1) * time.Minute)
		change, err := report.ApplyStatus(r, to, mod.ID, at)
		require.NoError(t, err)
		r.UpdatedAt = at
		note := &report.Note{ReportID: r.ID, ModeratorID: mod.ID, Note: "step", CreatedAt: at}
		require.NoError(t, s.AddNote(ctx, note, r, prev, change))
		assert.NotZero(t, note.ID)
	}

	history, err := s.StatusHistory(ctx, r.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, report.StatusPending, history[0].From)
	assert.Equal(t, report.StatusInReview, history[0].To)
	assert.Equal(t, report.StatusResolved, history[1].To)

	notes, err := s.NotesForReports(ctx, []int64{r.ID})
	require.NoError(t, err)
	require.Len(t, notes[r.ID], 3)
	assert.True(t, notes[r.ID][0].CreatedAt.After(notes[r.ID][2].CreatedAt))

	got, err := s.ReportByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, report.StatusResolved, got.Status)
}

func TestAddNoteRollsBackOnConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "a@example.com", "user")
	mod := seedUser(t, s, "m@example.com", "moderator")
	r := seedReport(t, s, u.ID, "title")

	err := s.AddNote(ctx, &report.Note{ReportID: r.ID, ModeratorID: mod.ID, Note: "x"}, r, report.StatusRejected, nil)
	assert.ErrorIs(t, err, ErrConflict)

	notes, err := s.NotesForReports(ctx, []int64{r.ID})
	require.NoError(t, err)
	assert.Empty(t, notes[r.ID])
}

func TestMissingReportIDs(t *testing.T) {
	s := newTestStore(t)
	u := seedUser(t, s, "a@example.com", "user")
	r := seedReport(t, s, u.ID, "title")

	missing, err := s.MissingReportIDs(context.Background(), []int64{r.ID, 404, 405})
	require.NoError(t, err)
	assert.Equal(t, []int64{404, 405}, missing)
}

func TestMigrateUpgradesLegacySchema(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	legacy := []string{
		`CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, email TEXT NOT NULL UNIQUE, password_hash TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user', full_name TEXT NOT NULL, is_active INTEGER NOT NULL DEFAULT 1, created_at TEXT NOT NULL)`,
		`CREATE TABLE reports (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id INTEGER NOT NULL, title TEXT NOT NULL,
			description TEXT NOT NULL, category TEXT NOT NULL, evidence TEXT, status TEXT NOT NULL DEFAULT 'pending',
			created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`,
		`INSERT INTO users (email, password_hash, full_name, created_at) VALUES ('old@example.com', 'h', 'Old', '2024-01-02 03:04:05')`,
		`INSERT INTO reports (user_id, title, description, category, created_at, updated_at)
			VALUES (1, 'old', 'old report', 'other', '2024-01-02 03:04:05', '2024-01-02 03:04:05')`,
	}
	for _, q := range legacy {
		_, err := s.db.ExecContext(ctx, q)
		require.NoError(t, err)
	}

	res, err := s.Migrate(ctx)
	require.NoError(t, err)
	assert.Contains(t, res.ColumnsAdded, "reports.report_number")
	assert.Contains(t, res.ColumnsAdded, "reports.severity")
	assert.Equal(t, 1, res.NumbersAssigned)

	r, err := s.ReportByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "REP-20240102-0001", r.Number)
	assert.Equal(t, report.SeverityMedium, r.Severity)
	assert.Equal(t, report.ContactEmail, r.ContactMethod)

	res, err = s.Migrate(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.ColumnsAdded)
	assert.Zero(t, res.NumbersAssigned)
}

func TestInTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO users (email, password_hash, role, full_name, is_active, created_at) VALUES ('x@example.com', 'h', 'user', 'X', 1, ?)`, formatTime(testNow))
		require.NoError(t, err)
		return ErrConflict
	})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.UserByEmail(ctx, "x@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFormatTimeSortsLexically(t *testing.T) {
	times := []time.Time{
		testNow,
		testNow.Add(123 * time.Millisecond),
		testNow.Add(123400 * time.Microsecond),
		testNow.Add(500 * time.Millisecond),
		testNow.Add(time.Second),
	}
	for i := 1; i < len(times); i++ {
		a, b := formatTime(times[i-1]), formatTime(times[i])
		assert.Less(t, a, b)
		assert.Len(t, b, len(a))
	}

	parsed, err := parseTime(formatTime(times[2]))
	require.NoError(t, err)
	assert.True(t, parsed.Equal(times[2]))

	legacy, err := parseTime("2025-03-14T12:00:00.5Z")
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, legacy.Sub(testNow))
}
