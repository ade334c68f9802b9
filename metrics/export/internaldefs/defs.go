package internaldefs

import (
	"github.com/MrEthical07/safeher"
)

// CounterDef names one counter for every exporter.
type CounterDef struct {
	ID   safeher.MetricID
	Name string
	Help string
}

// HistogramDef names one latency histogram for every exporter.
type HistogramDef struct {
	ID   safeher.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in render order.
var CounterDefs = []CounterDef{
	{ID: safeher.MetricLoginSuccess, Name: "safeher_login_success_total", Help: "Successful login attempts."},
	{ID: safeher.MetricLoginFailure, Name: "safeher_login_failure_total", Help: "Failed login attempts."},
	{ID: safeher.MetricLoginRateLimited, Name: "safeher_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: safeher.MetricLogout, Name: "safeher_logout_total", Help: "Logout operations."},
	{ID: safeher.MetricSessionCreated, Name: "safeher_session_created_total", Help: "Created sessions."},
	{ID: safeher.MetricSessionInvalidated, Name: "safeher_session_invalidated_total", Help: "Invalidated sessions."},
	{ID: safeher.MetricAccountCreationSuccess, Name: "safeher_account_creation_success_total", Help: "Successful account creations."},
	{ID: safeher.MetricAccountCreationDuplicate, Name: "safeher_account_creation_duplicate_total", Help: "Account creation attempts rejected as duplicate."},
	{ID: safeher.MetricAccountCreationRateLimited, Name: "safeher_account_creation_rate_limited_total", Help: "Rate-limited account creation attempts."},
	{ID: safeher.MetricAccountDisabled, Name: "safeher_account_disabled_total", Help: "Account deactivations."},
	{ID: safeher.MetricAccountEnabled, Name: "safeher_account_enabled_total", Help: "Account reactivations."},
	{ID: safeher.MetricTokenExpired, Name: "safeher_token_expired_total", Help: "Requests with an expired access token."},
	{ID: safeher.MetricTokenInvalid, Name: "safeher_token_invalid_total", Help: "Requests with a malformed or forged access token."},
	{ID: safeher.MetricReportCreated, Name: "safeher_report_created_total", Help: "Submitted reports."},
	{ID: safeher.MetricReportUpdated, Name: "safeher_report_updated_total", Help: "Report edits."},
	{ID: safeher.MetricReportStatusChanged, Name: "safeher_report_status_changed_total", Help: "Report status transitions."},
	{ID: safeher.MetricNoteAdded, Name: "safeher_note_added_total", Help: "Moderator notes."},
	{ID: safeher.MetricReportExported, Name: "safeher_report_exported_total", Help: "CSV exports."},
	{ID: safeher.MetricUploadAccepted, Name: "safeher_upload_accepted_total", Help: "Stored evidence uploads."},
	{ID: safeher.MetricUploadRejected, Name: "safeher_upload_rejected_total", Help: "Uploads rejected by policy or storage."},
	{ID: safeher.MetricUploadRateLimited, Name: "safeher_upload_rate_limited_total", Help: "Rate-limited uploads."},
	{ID: safeher.MetricHTTPRequests, Name: "safeher_http_requests_total", Help: "Served HTTP requests."},
	{ID: safeher.MetricHTTPServerErrors, Name: "safeher_http_server_errors_total", Help: "HTTP responses with a 5xx status."},
}

// HistogramDefs lists every exported latency histogram.
var HistogramDefs = []HistogramDef{
	{ID: safeher.MetricValidateLatency, Name: "safeher_validate_latency_seconds", Help: "Token validation latency histogram."},
	{ID: safeher.MetricHTTPLatency, Name: "safeher_http_request_duration_seconds", Help: "HTTP request latency histogram."},
}

// HistogramBounds are the upper bounds of the eight buckets, in seconds.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds made safe for instrument names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
