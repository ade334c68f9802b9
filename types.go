package safeher

import (
	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/report"
)

// AuthResult is returned by [Engine.Validate]. It identifies the caller and
// carries the permission mask of their role.
type AuthResult struct {
	UserID    int64
	Role      string
	SessionID string
	Mask      permission.Mask64
}

// Viewer returns the projection context used to render reports for the caller.
func (a *AuthResult) Viewer(canReadAll bool) report.Viewer {
	return report.Viewer{UserID: a.UserID, CanReadAll: canReadAll}
}

// RegisterRequest is the self-service sign-up payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// LoginRequest is the credential payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is returned by Register and Login.
type LoginResult struct {
	AccessToken string
	SessionID   string
	User        *report.Person
}

// CreateUserRequest is the admin payload for provisioning an account.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	TotalReports    int                   `json:"total_reports"`
	ReportsByStatus map[report.Status]int `json:"reports_by_status"`
	TotalUsers      int                   `json:"total_users"`
	UsersByRole     map[string]int        `json:"users_by_role"`
}

// QueueFilter selects reports for the moderation queue. "all" (or empty)
// means pending and in_review.
type QueueFilter struct {
	Status string
}

// HealthStatus reports backend reachability.
type HealthStatus struct {
	DatabaseOK   bool
	RedisOK      bool
	RedisLatency int64 // microseconds
}

// AddNoteRequest is the moderator note payload. Status optionally moves the
// report in the same write.
type AddNoteRequest struct {
	Note   string `json:"note"`
	Status string `json:"status"`
}
