package report

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Step is one page of the multi-step submission form.
type Step int

const (
	StepBasics Step = iota + 1
	StepIncident
	StepEvidence
	StepContact
	StepAdditional
)

// StepCount is the number of submission steps.
const StepCount = int(StepAdditional)

func (s Step) Valid() bool {
	return s >= StepBasics && s <= StepAdditional
}

// Draft is the submission payload, in wire form, before it becomes a Report.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Tags        []string `json:"tags"`

	Location     string `json:"location"`
	IncidentDate string `json:"incident_date"`
	Severity     string `json:"severity"`
	Urgency      string `json:"urgency"`

	Evidence    string       `json:"evidence"`
	Attachments []Attachment `json:"file_attachments"`

	ContactPhone  string `json:"contact_phone"`
	ContactMethod string `json:"preferred_contact_method"`
	FollowUp      bool   `json:"follow_up_requested"`

	Witnesses        string  `json:"witnesses"`
	PerpetratorInfo  string  `json:"perpetrator_info"`
	Anonymous        bool    `json:"anonymous_report"`
	RelatedReportIDs []int64 `json:"related_report_ids"`
}

var incidentDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseIncidentDate accepts RFC 3339, the browser datetime-local form, or a
// bare date. Values without an offset are read as UTC.
func ParseIncidentDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range incidentDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// Normalize trims strings, lower-cases enum values, applies defaults and
// de-duplicates tags and related ids.
func (d Draft) Normalize() Draft {
	out := d
	out.Title = strings.TrimSpace(d.Title)
	out.Description = strings.TrimSpace(d.Description)
	out.Category = strings.ToLower(strings.TrimSpace(d.Category))
	out.Subcategory = strings.TrimSpace(d.Subcategory)
	out.Location = strings.TrimSpace(d.Location)
	out.IncidentDate = strings.TrimSpace(d.IncidentDate)
	out.Severity = strings.ToLower(strings.TrimSpace(d.Severity))
	out.Urgency = strings.ToLower(strings.TrimSpace(d.Urgency))
	out.Evidence = strings.TrimSpace(d.Evidence)
	out.ContactPhone = strings.TrimSpace(d.ContactPhone)
	out.ContactMethod = strings.ToLower(strings.TrimSpace(d.ContactMethod))
	out.Witnesses = strings.TrimSpace(d.Witnesses)
	out.PerpetratorInfo = strings.TrimSpace(d.PerpetratorInfo)

	if out.Severity == "" {
		out.Severity = string(SeverityMedium)
	}
	if out.Urgency == "" {
		out.Urgency = string(UrgencyNormal)
	}
	if out.ContactMethod == "" {
		out.ContactMethod = string(ContactEmail)
	}

	out.Tags = normalizeTags(d.Tags)
	out.RelatedReportIDs = dedupeIDs(d.RelatedReportIDs)
	if len(d.Attachments) > 0 {
		out.Attachments = make([]Attachment, len(d.Attachments))
		for i, a := range d.Attachments {
			a.Name = strings.TrimSpace(a.Name)
			a.URL = strings.TrimSpace(a.URL)
			a.Type = strings.TrimSpace(a.Type)
			out.Attachments[i] = a
		}
	} else {
		out.Attachments = nil
	}
	return out
}

// ValidateStep checks the fields that belong to one submission step.
// The draft is normalized first. now bounds the incident date.
func (d Draft) ValidateStep(step Step, now time.Time) error {
	if !step.Valid() {
		return ErrUnknownStep
	}
	n := d.Normalize()
	errs := FieldErrors{}
	switch step {
	case StepBasics:
		n.validateBasics(errs)
	case StepIncident:
		n.validateIncident(errs, now)
	case StepEvidence:
		n.validateEvidence(errs)
	case StepContact:
		n.validateContact(errs)
	case StepAdditional:
		n.validateAdditional(errs)
	}
	return errs.orNil()
}

// Validate checks every step.
func (d Draft) Validate(now time.Time) error {
	errs := FieldErrors{}
	for s := StepBasics; s <= StepAdditional; s++ {
		if err := d.ValidateStep(s, now); err != nil {
			if fe, ok := err.(FieldErrors); ok {
				errs.merge(fe)
			}
		}
	}
	return errs.orNil()
}

// Build validates the draft and turns it into a pending report owned by userID.
// ID and Number are left for the store to assign.
func (d Draft) Build(userID int64, now time.Time) (*Report, error) {
	if err := d.Validate(now); err != nil {
		return nil, err
	}
	n := d.Normalize()
	r := &Report{
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	n.applyTo(r)
	return r, nil
}

// applyTo copies content fields of an already validated, normalized draft.
func (d Draft) applyTo(r *Report) {
	r.Title = d.Title
	r.Description = d.Description
	r.Category = Category(d.Category)
	r.Subcategory = d.Subcategory
	r.Tags = d.Tags
	r.Location = d.Location
	r.IncidentDate = nil
	if d.IncidentDate != "" {
		if t, ok := ParseIncidentDate(d.IncidentDate); ok {
			r.IncidentDate = &t
		}
	}
	r.Severity = Severity(d.Severity)
	r.Urgency = Urgency(d.Urgency)
	r.Evidence = d.Evidence
	r.Attachments = d.Attachments
	r.ContactPhone = d.ContactPhone
	r.ContactMethod = ContactMethod(d.ContactMethod)
	r.FollowUp = d.FollowUp
	r.Witnesses = d.Witnesses
	r.PerpetratorInfo = d.PerpetratorInfo
	r.Anonymous = d.Anonymous
	r.RelatedReportIDs = d.RelatedReportIDs
}

// DraftOf renders the content of r back into draft form.
func DraftOf(r *Report) Draft {
	d := Draft{
		Title:            r.Title,
		Description:      r.Description,
		Category:         string(r.Category),
		Subcategory:      r.Subcategory,
		Tags:             append([]string(nil), r.Tags...),
		Location:         r.Location,
		Severity:         string(r.Severity),
		Urgency:          string(r.Urgency),
		Evidence:         r.Evidence,
		Attachments:      append([]Attachment(nil), r.Attachments...),
		ContactPhone:     r.ContactPhone,
		ContactMethod:    string(r.ContactMethod),
		FollowUp:         r.FollowUp,
		Witnesses:        r.Witnesses,
		PerpetratorInfo:  r.PerpetratorInfo,
		Anonymous:        r.Anonymous,
		RelatedReportIDs: append([]int64(nil), r.RelatedReportIDs...),
	}
	if r.IncidentDate != nil {
		d.IncidentDate = r.IncidentDate.UTC().Format(time.RFC3339)
	}
	return d
}

func (d Draft) validateBasics(errs FieldErrors) {
	switch {
	case d.Title == "":
		errs.add("title", "is required")
	case utf8.RuneCountInString(d.Title) > maxTitleLen:
		errs.add("title", "must be at most 200 characters")
	}
	if d.Description == "" {
		errs.add("description", "is required")
	}
	switch {
	case d.Category == "":
		errs.add("category", "is required")
	case !Category(d.Category).Valid():
		errs.add("category", "must be one of online, physical, workplace, other")
	}
	if utf8.RuneCountInString(d.Subcategory) > maxSubcategoryLen {
		errs.add("subcategory", "must be at most 50 characters")
	}
	if len(d.Tags) > maxTags {
		errs.add("tags", "at most 20 tags are allowed")
	}
	for _, tag := range d.Tags {
		if utf8.RuneCountInString(tag) > maxTagLen {
			errs.add("tags", "each tag must be at most 50 characters")
			break
		}
	}
}

func (d Draft) validateIncident(errs FieldErrors, now time.Time) {
	if utf8.RuneCountInString(d.Location) > maxLocationLen {
		errs.add("location", "must be at most 200 characters")
	}
	if d.IncidentDate != "" {
		t, ok := ParseIncidentDate(d.IncidentDate)
		switch {
		case !ok:
			errs.add("incident_date", "must be an ISO 8601 date or date-time")
		case t.After(now.UTC()):
			errs.add("incident_date", "must not be in the future")
		}
	}
	if !Severity(d.Severity).Valid() {
		errs.add("severity", "must be one of low, medium, high, critical")
	}
	if !Urgency(d.Urgency).Valid() {
		errs.add("urgency", "must be one of low, normal, urgent, immediate")
	}
}

func (d Draft) validateEvidence(errs FieldErrors) {
	if len(d.Attachments) > maxAttachments {
		errs.add("file_attachments", "at most 20 attachments are allowed")
		return
	}
	for _, a := range d.Attachments {
		if a.Name == "" {
			errs.add("file_attachments", "every attachment needs a name")
			return
		}
		if !strings.HasPrefix(a.URL, UploadURLPrefix) || len(a.URL) == len(UploadURLPrefix) {
			errs.add("file_attachments", "attachments must reference an uploaded file")
			return
		}
		if a.Size < 0 {
			errs.add("file_attachments", "attachment size must not be negative")
			return
		}
	}
}

func (d Draft) validateContact(errs FieldErrors) {
	method := ContactMethod(d.ContactMethod)
	if !method.Valid() {
		errs.add("preferred_contact_method", "must be one of email, phone, sms")
	}
	if d.ContactPhone != "" {
		if len(d.ContactPhone) > maxPhoneLen || !validPhone(d.ContactPhone) {
			errs.add("contact_phone", "must be a phone number of at most 20 characters")
		}
	}
	if method.NeedsPhone() && d.ContactPhone == "" {
		errs.add("contact_phone", "is required when the preferred contact method is phone or sms")
	}
}

func (d Draft) validateAdditional(errs FieldErrors) {
	if len(d.RelatedReportIDs) > maxRelatedReports {
		errs.add("related_report_ids", "at most 50 related reports are allowed")
	}
	for _, id := range d.RelatedReportIDs {
		if id <= 0 {
			errs.add("related_report_ids", "ids must be positive")
			break
		}
	}
}

func validPhone(s string) bool {
	digits := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 3
}

func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
