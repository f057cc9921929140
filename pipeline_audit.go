package guardkit

import (
	"context"
	"errors"
	"time"

	"github.com/guardkit/guardkit/csrf"
)

const (
	auditEventCSRFRejected        = "csrf_rejected"
	auditEventCSRFBearerBypass    = "csrf_bearer_bypass"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
	auditEventChallengeIssued     = "challenge_issued"
	auditEventChallengeVerified   = "challenge_verified"
	auditEventChallengeRejected   = "challenge_rejected"
	auditEventCaptchaVerified     = "captcha_verified"
	auditEventCaptchaRejected     = "captcha_rejected"
	auditEventCaptchaFallback     = "captcha_fallback"
	auditEventProviderUnavailable = "captcha_provider_unavailable"
)

// AuditErrorCode defines a public type used by guardkit APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrCSRFMissing      = AuditErrorCode(csrf.ReasonMissing)
	auditErrCSRFMismatch     = AuditErrorCode(csrf.ReasonMismatch)
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrCaptchaRejected  AuditErrorCode = "captcha_rejected"
	auditErrProviderDown     AuditErrorCode = "provider_unavailable"
	auditErrStoreUnavailable AuditErrorCode = "store_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

func (p *Pipeline) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	method string,
	path string,
	ip string,
	identifier string,
	provider string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if p == nil || p.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:  time.Now().UTC(),
		EventType:  eventType,
		Method:     method,
		Path:       path,
		IP:         ip,
		Identifier: identifier,
		Provider:   provider,
		Success:    success,
		Metadata:   metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Reason = string(code)
	}

	p.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCSRFMissing):
		return auditErrCSRFMissing
	case errors.Is(err, ErrCSRFMismatch):
		return auditErrCSRFMismatch
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrCaptchaRejected):
		return auditErrCaptchaRejected
	case errors.Is(err, ErrCaptchaUnavailable):
		return auditErrProviderDown
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrStoreUnavailable
	default:
		return auditErrInternal
	}
}
