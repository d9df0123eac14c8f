package goGate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goGate/session"
)

// AuditErrorCode classifies the error attached to a failed audit event.
type AuditErrorCode string

const (
	auditErrBadPassword    AuditErrorCode = "bad_password"
	auditErrNoSuchUser     AuditErrorCode = "no_such_user"
	auditErrTamper         AuditErrorCode = "integrity_failure"
	auditErrMalformed      AuditErrorCode = "malformed_cookie"
	auditErrStale          AuditErrorCode = "stale_session"
	auditErrMissingCookie  AuditErrorCode = "missing_cookie"
	auditErrRateLimited    AuditErrorCode = "rate_limited"
	auditErrInvalidToken   AuditErrorCode = "invalid_token"
	auditErrMismatchedUser AuditErrorCode = "mismatched_token"
	auditErrFingerprint    AuditErrorCode = "fingerprint_mismatch"
	auditErrIPMismatch     AuditErrorCode = "ip_mismatch"
	auditErrExpired        AuditErrorCode = "expired_token"
	auditErrWeakPassword   AuditErrorCode = "weak_password"
	auditErrDuplicate      AuditErrorCode = "duplicate"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	req *Request,
	eventType string,
	success bool,
	userID int64,
	username string,
	err error,
	metadata map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Username:  username,
		Success:   success,
		Metadata:  metadata,
	}
	if userID > 0 {
		event.UserID = strconv.FormatInt(userID, 10)
	}
	if req != nil {
		event.IP = req.ClientIP
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrBadPassword):
		return auditErrBadPassword
	case errors.Is(err, ErrNoSuchUser), errors.Is(err, ErrRecordNotFound), errors.Is(err, ErrUserNotFound):
		return auditErrNoSuchUser
	case errors.Is(err, session.ErrIntegrity), errors.Is(err, session.ErrDecrypt):
		return auditErrTamper
	case errors.Is(err, session.ErrMalformed):
		return auditErrMalformed
	case errors.Is(err, session.ErrMismatch):
		return auditErrStale
	case errors.Is(err, session.ErrMissingCookie):
		return auditErrMissingCookie
	case errors.Is(err, ErrTooManyRecoveryAttempts):
		return auditErrRateLimited
	case errors.Is(err, ErrMismatchedResetToken), errors.Is(err, ErrResetTokenUser):
		return auditErrMismatchedUser
	case errors.Is(err, ErrResetTokenFingerprint):
		return auditErrFingerprint
	case errors.Is(err, ErrResetTokenIP):
		return auditErrIPMismatch
	case errors.Is(err, ErrResetTokenExpired):
		return auditErrExpired
	case errors.Is(err, ErrInvalidResetToken), errors.Is(err, ErrResetTokenUsed), errors.Is(err, ErrTokenNotFound):
		return auditErrInvalidToken
	case errors.Is(err, ErrWeakPassword):
		return auditErrWeakPassword
	case errors.Is(err, ErrRecordExists), errors.Is(err, ErrUsernameTaken), errors.Is(err, ErrEmailTaken):
		return auditErrDuplicate
	default:
		return auditErrInternal
	}
}

func (e *Engine) now() time.Time {
	if e.clock != nil {
		return e.clock()
	}
	return time.Now()
}
