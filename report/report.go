package report

import (
	"fmt"
	"time"
)

// Attachment is the metadata of an uploaded evidence file.
type Attachment struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Report is a harassment incident report as persisted.
type Report struct {
	ID               int64
	UserID           int64
	Number           string
	Title            string
	Description      string
	Category         Category
	Subcategory      string
	Tags             []string
	Location         string
	IncidentDate     *time.Time
	Severity         Severity
	Urgency          Urgency
	Evidence         string
	Attachments      []Attachment
	ContactPhone     string
	ContactMethod    ContactMethod
	FollowUp         bool
	Witnesses        string
	PerpetratorInfo  string
	Anonymous        bool
	RelatedReportIDs []int64
	Status           Status
	ResolutionNotes  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Person is the public view of a user embedded in reports and notes.
type Person struct {
	ID        *int64     `json:"id"`
	Email     string     `json:"email"`
	FullName  string     `json:"full_name"`
	Role      string     `json:"role,omitempty"`
	IsActive  *bool      `json:"is_active,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Anonymous is shown instead of the owner on anonymous reports.
func Anonymous() *Person {
	return &Person{Email: "Anonymous", FullName: "Anonymous"}
}

// Note is an append-only moderator annotation.
type Note struct {
	ID          int64     `json:"id"`
	ReportID    int64     `json:"report_id"`
	ModeratorID int64     `json:"moderator_id"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `json:"created_at"`
	Moderator   *Person   `json:"moderator"`
}

// StatusChange records one applied status transition.
type StatusChange struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	ActorID   int64     `json:"actor_id"`
	From      Status    `json:"from"`
	To        Status    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// Number formats the human facing report number, REP-YYYYMMDD-NNNN.
func Number(id int64, createdAt time.Time) string {
	return fmt.Sprintf("REP-%s-%04d", createdAt.UTC().Format("20060102"), id)
}

// Editable reports whether the owner may still change the report content.
func (r *Report) Editable() bool {
	return !r.Status.Terminal()
}
