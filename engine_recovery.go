package goGate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// CreateRecoveryToken issues a password-recovery token for user, bound to
// the IP and browser fingerprint of req. Earlier unused tokens are
// invalidated. Requests beyond Config.Recovery.MaxRequests within
// Config.Recovery.Window fail with ErrTooManyRecoveryAttempts.
func (e *Engine) CreateRecoveryToken(ctx context.Context, req *Request, user User) (*ResetToken, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if e.tokens == nil {
		return nil, ErrPasswordResetProhibited
	}
	req = orEmptyRequest(req)

	rec, err := e.recordFor(ctx, user)
	if err != nil {
		return nil, err
	}

	since := e.now().Add(-e.config.Recovery.Window)
	count, err := e.tokens.CountRequests(ctx, rec.UserID, since)
	if err != nil {
		return nil, fmt.Errorf("count recovery requests: %w", err)
	}
	if count >= e.config.Recovery.MaxRequests {
		e.metricInc(MetricRecoveryThrottled)
		e.emitAudit(ctx, req, AuditRecoveryThrottled, false, rec.UserID, rec.Username, ErrTooManyRecoveryAttempts, nil)
		return nil, ErrTooManyRecoveryAttempts
	}

	if err := e.tokens.InvalidateUnused(ctx, rec.UserID); err != nil {
		return nil, fmt.Errorf("invalidate recovery tokens: %w", err)
	}

	tok, err := e.newResetToken(rec, req)
	if err != nil {
		return nil, fmt.Errorf("create recovery token: %w", err)
	}
	if err := e.tokens.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("save recovery token: %w", err)
	}

	e.metricInc(MetricRecoveryRequested)
	e.emitAudit(ctx, req, AuditRecoveryRequested, true, rec.UserID, rec.Username, nil, map[string]string{"token_id": tok.ID})
	return tok, nil
}

// ChangePasswordWithRecoveryToken redeems a recovery token and sets a new
// password. The token is marked used before the password changes and is
// restored to unused if the change fails.
func (e *Engine) ChangePasswordWithRecoveryToken(ctx context.Context, req *Request, user User, tokenID, token, newPass string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if e.tokens == nil {
		return ErrPasswordResetProhibited
	}
	req = orEmptyRequest(req)

	rec, err := e.recordFor(ctx, user)
	if err != nil {
		return err
	}

	tok, err := e.tokens.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return e.recoveryRejected(ctx, req, rec, ErrInvalidResetToken)
		}
		return fmt.Errorf("get recovery token: %w", err)
	}

	if err := e.validateResetToken(tok, rec, token, req); err != nil {
		return e.recoveryRejected(ctx, req, rec, err)
	}
	if err := e.checkStrength(user, rec.Username, newPass); err != nil {
		return err
	}

	tok.Status = TokenUsed
	if err := e.tokens.Update(ctx, tok); err != nil {
		return fmt.Errorf("update recovery token: %w", err)
	}

	if err := e.ResetPassword(ctx, user, newPass); err != nil {
		tok.Status = TokenUnused
		if uerr := e.tokens.Update(ctx, tok); uerr != nil {
			e.log.WithError(uerr).WithField("token_id", tok.ID).Error("recovery token could not be restored after failed reset")
		}
		return err
	}

	e.metricInc(MetricRecoveryConsumed)
	e.emitAudit(ctx, req, AuditRecoveryConsumed, true, rec.UserID, rec.Username, nil, map[string]string{"token_id": tok.ID})
	return nil
}

func (e *Engine) recoveryRejected(ctx context.Context, req *Request, rec *AuthenticationRecord, err error) error {
	e.metricInc(MetricRecoveryRejected)
	e.log.WithError(err).WithField("user_id", strconv.FormatInt(rec.UserID, 10)).Info("recovery token rejected")
	e.emitAudit(ctx, req, AuditRecoveryRejected, false, rec.UserID, rec.Username, err, nil)
	return err
}

func orEmptyRequest(req *Request) *Request {
	if req != nil {
		return req
	}
	return NewRequestFromValues("", nil, nil)
}
