package safeher

import (
	"context"
	"errors"
	"io"

	"github.com/MrEthical07/safeher/attachment"
	"github.com/MrEthical07/safeher/internal/limiters"
	"github.com/MrEthical07/safeher/permission"
	"github.com/MrEthical07/safeher/report"
)

// Upload stores one evidence file for the caller and returns its metadata.
// Policy violations are returned as attachment errors (ErrNoFile,
// ErrTypeNotAllowed, ErrTooLarge).
func (e *Engine) Upload(ctx context.Context, auth *AuthResult, filename string, r io.Reader) (report.Attachment, error) {
	if err := e.require(auth, permission.UploadCreate); err != nil {
		return report.Attachment{}, err
	}

	if err := e.uploadLimiter.Enforce(ctx, auth.UserID); err != nil {
		if errors.Is(err, limiters.ErrRateLimited) {
			e.metricInc(MetricUploadRateLimited)
			e.emitAudit(ctx, auditRecord{
				eventType: auditEventUploadRejected,
				userID:    auth.UserID,
				sessionID: auth.SessionID,
				err:       ErrUploadRateLimited,
			})
			return report.Attachment{}, ErrUploadRateLimited
		}
		return report.Attachment{}, unavailable(err)
	}

	att, err := e.uploader.Save(ctx, filename, r)
	if err != nil {
		if !isUploadPolicyError(err) {
			err = unavailable(err)
		}
		e.metricInc(MetricUploadRejected)
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventUploadRejected,
			userID:    auth.UserID,
			sessionID: auth.SessionID,
			err:       err,
		})
		return report.Attachment{}, err
	}

	e.metricInc(MetricUploadAccepted)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventUploadAccepted,
		success:   true,
		userID:    auth.UserID,
		sessionID: auth.SessionID,
		metadata: func() map[string]string {
			return map[string]string{
				"url":  att.URL,
				"type": att.Type,
			}
		},
	})
	return att, nil
}

// OpenUpload opens a stored object by its stored name.
func (e *Engine) OpenUpload(ctx context.Context, name string) (io.ReadCloser, attachment.Object, error) {
	if e == nil {
		return nil, attachment.Object{}, ErrEngineNotReady
	}
	return e.uploader.Open(ctx, name)
}

func isUploadPolicyError(err error) bool {
	return errors.Is(err, attachment.ErrNoFile) ||
		errors.Is(err, attachment.ErrTypeNotAllowed) ||
		errors.Is(err, attachment.ErrTooLarge) ||
		errors.Is(err, attachment.ErrInvalidName)
}
