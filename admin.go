package safeher

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/report"
	"github.com/MrEthical07/safeher/store"
	"go.uber.org/zap"
)

// ExportFilename is the attachment name of the CSV export.
const ExportFilename = "safeher_reports_export.csv"

const exportTimeLayout = "2006-01-02T15:04:05"

var exportHeader = []string{
	"ID", "User Email", "Title", "Category", "Status",
	"Description", "Evidence", "Created At", "Updated At",
}

// ListUsers returns every account, newest first.
func (e *Engine) ListUsers(ctx context.Context, auth *AuthResult) ([]*report.Person, error) {
	if err := e.require(auth, permission.UserManage); err != nil {
		return nil, err
	}
	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	out := make([]*report.Person, 0, len(users))
	for _, u := range users {
		out = append(out, u.Person())
	}
	return out, nil
}

// CreateUser provisions an account with any known role. Registration
// throttles and the AllowRegistration switch do not apply.
func (e *Engine) CreateUser(ctx context.Context, auth *AuthResult, req CreateUserRequest) (*report.Person, error) {
	if err := e.require(auth, permission.UserManage); err != nil {
		return nil, err
	}

	email := store.NormalizeEmail(req.Email)
	fullName := strings.TrimSpace(req.FullName)
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if email == "" || req.Password == "" || fullName == "" || role == "" {
		return nil, invalidInput("Missing required fields: email, password, full_name, role")
	}
	if !e.roleManager.HasRole(role) {
		return nil, ErrAccountRoleInvalid
	}

	u, err := e.createUser(ctx, email, req.Password, fullName, role, false)
	if err != nil {
		return nil, err
	}
	return u.Person(), nil
}

// SeedAdmin creates an admin account unless email is already registered.
// created reports whether a new row was written.
func (e *Engine) SeedAdmin(ctx context.Context, email, plain, fullName string) (user *report.Person, created bool, err error) {
	if e == nil {
		return nil, false, ErrEngineNotReady
	}
	email = store.NormalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || plain == "" {
		return nil, false, invalidInput("Email and password are required")
	}
	if fullName == "" {
		fullName = "Administrator"
	}

	existing, err := e.store.UserByEmail(ctx, email)
	switch {
	case err == nil:
		return existing.Person(), false, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, false, unavailable(err)
	}

	u, err := e.createUser(ctx, email, plain, fullName, permission.RoleAdmin, false)
	if err != nil {
		return nil, false, err
	}
	return u.Person(), true, nil
}

// SetUserActive activates or deactivates an account. Deactivation deletes
// every session of the user before the account is marked inactive, so a
// Redis failure leaves the account untouched. Admins cannot deactivate
// themselves.
func (e *Engine) SetUserActive(ctx context.Context, auth *AuthResult, id int64, active bool) (*report.Person, error) {
	if err := e.require(auth, permission.UserManage); err != nil {
		return nil, err
	}
	if id == auth.UserID && !active {
		return nil, ErrSelfDeactivation
	}

	if !active {
		if err := e.sessionStore.DeleteAllForUser(ctx, id); err != nil {
			e.logger.Error("session revocation failed", zap.Int64("user_id", id), zap.Error(err))
			return nil, unavailable(err)
		}
	}

	u, err := e.store.SetUserActive(ctx, id, active)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, unavailable(err)
	}

	if active {
		e.metricInc(MetricAccountEnabled)
	} else {
		// Sessions opened between the first sweep and the commit.
		if err := e.sessionStore.DeleteAllForUser(ctx, id); err != nil {
			e.logger.Warn("late session sweep failed", zap.Int64("user_id", id), zap.Error(err))
		}
		e.metricInc(MetricAccountDisabled)
		e.metricInc(MetricSessionInvalidated)
	}

	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAccountStatusChange,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
		metadata: func() map[string]string {
			return map[string]string{
				"target_user_id": formatID(id),
				"is_active":      strconv.FormatBool(active),
			}
		},
	})

	return u.Person(), nil
}

// Stats summarises reports and users. Every status appears, with zero when
// no report has it.
func (e *Engine) Stats(ctx context.Context, auth *AuthResult) (*Stats, error) {
	if err := e.require(auth, permission.StatsRead); err != nil {
		return nil, err
	}

	byStatus, err := e.store.CountReportsByStatus(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	byRole, err := e.store.CountUsersByRole(ctx)
	if err != nil {
		return nil, unavailable(err)
	}

	st := &Stats{
		ReportsByStatus: make(map[report.Status]int, len(report.Statuses)),
		UsersByRole:     make(map[string]int, len(byRole)),
	}
	for _, s := range report.Statuses {
		st.ReportsByStatus[s] = byStatus[s]
		st.TotalReports += byStatus[s]
	}
	for _, role := range permission.Roles() {
		st.UsersByRole[role] = 0
	}
	for role, n := range byRole {
		st.UsersByRole[role] = n
		st.TotalUsers += n
	}
	return st, nil
}

// ExportReportsCSV writes every report as CSV, newest first.
func (e *Engine) ExportReportsCSV(ctx context.Context, auth *AuthResult, w io.Writer) error {
	if err := e.require(auth, permission.ReportExport); err != nil {
		return err
	}
	n, err := WriteReportsCSV(ctx, e.store, w)
	if err != nil {
		return err
	}

	e.metricInc(MetricReportExported)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventReportsExported,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
		metadata: func() map[string]string {
			return map[string]string{"rows": strconv.Itoa(n)}
		},
	})
	return nil
}

// WriteReportsCSV writes the export straight from s and returns the number
// of report rows. Reports whose owner is gone get "N/A" as the email.
func WriteReportsCSV(ctx context.Context, s *store.Store, w io.Writer) (int, error) {
	reports, err := s.ListReports(ctx, store.ReportFilter{})
	if err != nil {
		return 0, unavailable(err)
	}
	ids := make([]int64, 0, len(reports))
	for _, r := range reports {
		ids = append(ids, r.UserID)
	}
	users, err := s.UsersByIDs(ctx, dedupe(ids))
	if err != nil {
		return 0, unavailable(err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, err
	}
	for _, r := range reports {
		email := "N/A"
		if u := users[r.UserID]; u != nil {
			email = u.Email
		}
		row := []string{
			formatID(r.ID),
			email,
			r.Title,
			string(r.Category),
			string(r.Status),
			r.Description,
			r.Evidence,
			r.CreatedAt.UTC().Format(exportTimeLayout),
			r.UpdatedAt.UTC().Format(exportTimeLayout),
		}
		if err := cw.Write(row); err != nil {
			return 0, err
		}
	}
	cw.Flush()
	return len(reports), cw.Error()
}
