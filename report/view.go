package report

import "time"

// Viewer is the caller a report is projected for. CanReadAll is true for
// roles allowed to see every report (moderators and admins).
type Viewer struct {
	UserID     int64
	CanReadAll bool
}

// CanView reports whether v may read r at all.
func CanView(r *Report, v Viewer) bool {
	return r != nil && (r.UserID == v.UserID || v.CanReadAll)
}

// IsOwner reports whether v submitted r.
func IsOwner(r *Report, v Viewer) bool {
	return r != nil && r.UserID == v.UserID
}

// View is the JSON shape of a report returned to clients.
type View struct {
	ID               int64          `json:"id"`
	UserID           *int64         `json:"user_id"`
	ReportNumber     string         `json:"report_number"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Category         Category       `json:"category"`
	Subcategory      *string        `json:"subcategory"`
	Tags             []string       `json:"tags"`
	Location         *string        `json:"location"`
	IncidentDate     *time.Time     `json:"incident_date"`
	Severity         Severity       `json:"severity"`
	Urgency          Urgency        `json:"urgency"`
	Evidence         *string        `json:"evidence"`
	Attachments      []Attachment   `json:"file_attachments"`
	ContactPhone     *string        `json:"contact_phone"`
	ContactMethod    ContactMethod  `json:"preferred_contact_method"`
	FollowUp         bool           `json:"follow_up_requested"`
	Witnesses        *string        `json:"witnesses"`
	PerpetratorInfo  *string        `json:"perpetrator_info"`
	Anonymous        bool           `json:"anonymous_report"`
	RelatedReportIDs []int64        `json:"related_report_ids"`
	Status           Status         `json:"status"`
	ResolutionNotes  *string        `json:"resolution_notes"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	User             *Person        `json:"user"`
	Notes            []Note         `json:"notes,omitzero"`
	History          []StatusChange `json:"history,omitzero"`
}

// Details are the optional parts attached to a projection.
type Details struct {
	Notes   []Note
	History []StatusChange
}

// Project renders r for v. Anonymous reports hide the owner from everyone
// but the owner. Notes and history are included only when details is non-nil.
func Project(r *Report, owner *Person, v Viewer, details *Details) View {
	out := View{
		ID:               r.ID,
		ReportNumber:     r.Number,
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.Category,
		Subcategory:      nullable(r.Subcategory),
		Tags:             nonNil(r.Tags),
		Location:         nullable(r.Location),
		IncidentDate:     r.IncidentDate,
		Severity:         r.Severity,
		Urgency:          r.Urgency,
		Evidence:         nullable(r.Evidence),
		Attachments:      nonNil(r.Attachments),
		ContactPhone:     nullable(r.ContactPhone),
		ContactMethod:    r.ContactMethod,
		FollowUp:         r.FollowUp,
		Witnesses:        nullable(r.Witnesses),
		PerpetratorInfo:  nullable(r.PerpetratorInfo),
		Anonymous:        r.Anonymous,
		RelatedReportIDs: nonNil(r.RelatedReportIDs),
		Status:           r.Status,
		ResolutionNotes:  nullable(r.ResolutionNotes),
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if out.ReportNumber == "" && r.ID > 0 {
		out.ReportNumber = Number(r.ID, r.CreatedAt)
	}

	if r.Anonymous && !IsOwner(r, v) {
		out.User = Anonymous()
	} else {
		uid := r.UserID
		out.UserID = &uid
		out.User = owner
	}

	if details != nil {
		out.Notes = nonNil(details.Notes)
		out.History = nonNil(details.History)
	}
	return out
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
