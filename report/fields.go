package report

// Severity grades how serious the incident was.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Urgency is how quickly the reporter needs a response.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyNormal    Urgency = "normal"
	UrgencyUrgent    Urgency = "urgent"
	UrgencyImmediate Urgency = "immediate"
)

func (u Urgency) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyNormal, UrgencyUrgent, UrgencyImmediate:
		return true
	}
	return false
}

// ContactMethod is how the reporter prefers to be reached.
type ContactMethod string

const (
	ContactEmail ContactMethod = "email"
	ContactPhone ContactMethod = "phone"
	ContactSMS   ContactMethod = "sms"
)

func (c ContactMethod) Valid() bool {
	switch c {
	case ContactEmail, ContactPhone, ContactSMS:
		return true
	}
	return false
}

// NeedsPhone reports whether the method can only be honoured with a phone number.
func (c ContactMethod) NeedsPhone() bool {
	return c == ContactPhone || c == ContactSMS
}

// Category is the top-level incident classification.
type Category string

const (
	CategoryOnline    Category = "online"
	CategoryPhysical  Category = "physical"
	CategoryWorkplace Category = "workplace"
	CategoryOther     Category = "other"
)

// Subcategories offered by the submission form. Other values are accepted.
var Subcategories = map[Category][]string{
	CategoryOnline:    {"Social Media", "Email", "Messaging", "Dating App", "Other"},
	CategoryPhysical:  {"Public Place", "Workplace", "School", "Transportation", "Other"},
	CategoryWorkplace: {"Verbal", "Physical", "Sexual", "Discrimination", "Other"},
	CategoryOther:     {},
}

func (c Category) Valid() bool {
	_, ok := Subcategories[c]
	return ok
}

const (
	maxTitleLen       = 200
	maxLocationLen    = 200
	maxPhoneLen       = 20
	maxSubcategoryLen = 50
	maxTagLen         = 50
	maxTags           = 20
	maxRelatedReports = 50
	maxAttachments    = 20

	// MaxNotesLen bounds moderator notes and resolution notes, in characters.
	MaxNotesLen = 10000

	// UploadURLPrefix is the public path prefix of stored attachments.
	UploadURLPrefix = "/uploads/"
)
