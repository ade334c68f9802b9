package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Field is a JSON value that remembers whether its key was present.
// A present null leaves Value at its zero value and sets Null.
type Field[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func (f *Field[T]) UnmarshalJSON(b []byte) error {
	f.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		f.Null = true
		var zero T
		f.Value = zero
		return nil
	}
	return json.Unmarshal(b, &f.Value)
}

// Some returns a present, non-null Field.
func Some[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: v}
}

func (f Field[T]) apply(dst *T) {
	if f.Set {
		*dst = f.Value
	}
}

// Patch is a sparse owner edit. Only keys present in the request change.
type Patch struct {
	Title       Field[string]   `json:"title"`
	Description Field[string]   `json:"description"`
	Category    Field[string]   `json:"category"`
	Subcategory Field[string]   `json:"subcategory"`
	Tags        Field[[]string] `json:"tags"`

	Location     Field[string] `json:"location"`
	IncidentDate Field[string] `json:"incident_date"`
	Severity     Field[string] `json:"severity"`
	Urgency      Field[string] `json:"urgency"`

	Evidence    Field[string]       `json:"evidence"`
	Attachments Field[[]Attachment] `json:"file_attachments"`

	ContactPhone  Field[string] `json:"contact_phone"`
	ContactMethod Field[string] `json:"preferred_contact_method"`
	FollowUp      Field[bool]   `json:"follow_up_requested"`

	Witnesses        Field[string]  `json:"witnesses"`
	PerpetratorInfo  Field[string]  `json:"perpetrator_info"`
	Anonymous        Field[bool]    `json:"anonymous_report"`
	RelatedReportIDs Field[[]int64] `json:"related_report_ids"`
}

// Empty reports whether the patch carries no keys at all.
func (p Patch) Empty() bool {
	return !(p.Title.Set || p.Description.Set || p.Category.Set || p.Subcategory.Set ||
		p.Tags.Set || p.Location.Set || p.IncidentDate.Set || p.Severity.Set ||
		p.Urgency.Set || p.Evidence.Set || p.Attachments.Set || p.ContactPhone.Set ||
		p.ContactMethod.Set || p.FollowUp.Set || p.Witnesses.Set || p.PerpetratorInfo.Set ||
		p.Anonymous.Set || p.RelatedReportIDs.Set)
}

// Apply validates the patched content and writes it into r. r is left
// untouched on error. Terminal reports are rejected with ErrReportLocked.
func (p Patch) Apply(r *Report, now time.Time) error {
	if !r.Editable() {
		return ErrReportLocked
	}
	d := DraftOf(r)
	p.Title.apply(&d.Title)
	p.Description.apply(&d.Description)
	p.Category.apply(&d.Category)
	p.Subcategory.apply(&d.Subcategory)
	p.Tags.apply(&d.Tags)
	p.Location.apply(&d.Location)
	p.IncidentDate.apply(&d.IncidentDate)
	p.Severity.apply(&d.Severity)
	p.Urgency.apply(&d.Urgency)
	p.Evidence.apply(&d.Evidence)
	p.Attachments.apply(&d.Attachments)
	p.ContactPhone.apply(&d.ContactPhone)
	p.ContactMethod.apply(&d.ContactMethod)
	p.FollowUp.apply(&d.FollowUp)
	p.Witnesses.apply(&d.Witnesses)
	p.PerpetratorInfo.apply(&d.PerpetratorInfo)
	p.Anonymous.apply(&d.Anonymous)
	p.RelatedReportIDs.apply(&d.RelatedReportIDs)

	if err := d.Validate(now); err != nil {
		return err
	}
	d.Normalize().applyTo(r)
	r.UpdatedAt = now.UTC()
	return nil
}

// ModeratorPatch is the edit a moderator or admin makes on someone else's report.
type ModeratorPatch struct {
	Status          Field[string] `json:"status"`
	ResolutionNotes Field[string] `json:"resolution_notes"`
}

// Apply moves r through the state machine and sets resolution notes.
// It returns the status change to record, or nil when the status is unchanged.
func (p ModeratorPatch) Apply(r *Report, actorID int64, now time.Time) (*StatusChange, error) {
	var change *StatusChange
	next := r.Status
	if p.Status.Set && !p.Status.Null {
		st, err := ParseStatus(strings.TrimSpace(p.Status.Value))
		if err != nil {
			return nil, FieldErrors{"status": "must be one of pending, in_review, resolved, rejected"}
		}
		changed, err := Transition(r.Status, st)
		if err != nil {
			return nil, err
		}
		if changed {
			change = &StatusChange{
				ReportID:  r.ID,
				ActorID:   actorID,
				From:      r.Status,
				To:        st,
				CreatedAt: now.UTC(),
			}
			next = st
		}
	}
	if p.ResolutionNotes.Set {
		notes := strings.TrimSpace(p.ResolutionNotes.Value)
		if utf8.RuneCountInString(notes) > MaxNotesLen {
			return nil, FieldErrors{"resolution_notes": fmt.Sprintf("must be at most %d characters", MaxNotesLen)}
		}
		r.ResolutionNotes = notes
	}
	if next != r.Status {
		r.Status = next
	}
	if change != nil || p.ResolutionNotes.Set {
		r.UpdatedAt = now.UTC()
	}
	return change, nil
}

// ApplyStatus is the status-only form used when a moderator adds a note.
func ApplyStatus(r *Report, to string, actorID int64, now time.Time) (*StatusChange, error) {
	if strings.TrimSpace(to) == "" {
		return nil, nil
	}
	change, err := ModeratorPatch{Status: Some(to)}.Apply(r, actorID, now)
	if err != nil {
		return nil, fmt.Errorf("apply status: %w", err)
	}
	return change, nil
}
