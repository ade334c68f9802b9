package safeher

import (
	"context"
	"errors"
	"io"

	"github.com/MrEthical07/safeher/internal/audit"
	"github.com/MrEthical07/safeher/report"
	"go.uber.org/zap"
)

// AuditEvent is one audit record.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NewChannelSink returns a sink that buffers events in a channel.
func NewChannelSink(buffer int) *audit.ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *audit.JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

// NewZapSink returns a sink that logs events through logger.
func NewZapSink(logger *zap.Logger) *audit.ZapSink {
	return audit.NewZapSink(logger)
}

const (
	auditEventLoginSuccess        = "login_success"
	auditEventLoginFailure        = "login_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventLogout              = "logout"
	auditEventAccountCreated      = "account_created"
	auditEventAccountCreateFailed = "account_creation_failure"
	auditEventAccountStatusChange = "account_status_change"
	auditEventReportCreated       = "report_created"
	auditEventReportUpdated       = "report_updated"
	auditEventReportStatusChanged = "report_status_changed"
	auditEventNoteAdded           = "note_added"
	auditEventReportsExported     = "reports_exported"
	auditEventUploadAccepted      = "upload_accepted"
	auditEventUploadRejected      = "upload_rejected"
)

// criticalAuditEvents record moderation and account decisions. The
// dispatcher never drops them for a full buffer.
var criticalAuditEvents = []string{
	auditEventReportStatusChanged,
	auditEventNoteAdded,
	auditEventAccountStatusChange,
	auditEventReportsExported,
}

// AuditErrorCode is the stable error label written into audit events.
type AuditErrorCode string

const (
	auditErrInvalidCredentials AuditErrorCode = "invalid_credentials"
	auditErrAccountDisabled    AuditErrorCode = "account_disabled"
	auditErrRateLimited        AuditErrorCode = "rate_limited"
	auditErrDuplicate          AuditErrorCode = "duplicate"
	auditErrInvalidInput       AuditErrorCode = "invalid_input"
	auditErrPermissionDenied   AuditErrorCode = "permission_denied"
	auditErrUnavailable        AuditErrorCode = "backend_unavailable"
	auditErrInternal           AuditErrorCode = "internal_error"
)

type auditRecord struct {
	eventType string
	success   bool
	userID    int64
	sessionID string
	reportID  int64
	err       error
	metadata  func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if rec.metadata != nil {
		metadata = rec.metadata()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: rec.eventType,
		UserID:    rec.userID,
		SessionID: rec.sessionID,
		ReportID:  rec.reportID,
		IP:        clientIPFromContext(ctx),
		Success:   rec.success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(rec.err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitStatusChange(ctx context.Context, change *report.StatusChange) {
	if change == nil {
		return
	}
	e.metricInc(MetricReportStatusChanged)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventReportStatusChanged,
		success:   true,
		userID:    change.ActorID,
		reportID:  change.ReportID,
		metadata: func() map[string]string {
			return map[string]string{
				"from": string(change.From),
				"to":   string(change.To),
			}
		},
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	var inputErr *InvalidInputError
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrLoginRateLimited),
		errors.Is(err, ErrAccountCreationRateLimited),
		errors.Is(err, ErrUploadRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, report.ErrValidation), errors.As(err, &inputErr), isUploadPolicyError(err):
		return auditErrInvalidInput
	case errors.Is(err, ErrPermissionDenied):
		return auditErrPermissionDenied
	case errors.Is(err, ErrUnavailable), errors.Is(err, ErrStrictBackendDown):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
