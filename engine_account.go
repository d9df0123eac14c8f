package goGate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/session"
)

// Create registers an authentication record for user after checking
// password strength, then logs the user in on req.
func (e *Engine) Create(ctx context.Context, req *Request, user User, username, pass string) (*AuthenticationRecord, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if err := e.checkStrength(user, username, pass); err != nil {
		return nil, err
	}

	rec, err := e.RegisterAuthenticationRecord(ctx, user, username, pass)
	if err != nil {
		return nil, err
	}

	if req != nil {
		if err := e.issueCookies(req, rec, e.transient(req)); err != nil {
			return nil, err
		}
		req.setIdentity(user)
	}
	return rec, nil
}

// RegisterAuthenticationRecord creates and persists the authentication
// record of a user that does not have one yet. An email-shaped username
// must be the user's own email address.
func (e *Engine) RegisterAuthenticationRecord(ctx context.Context, user User, username, pass string) (*AuthenticationRecord, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}
	if user == nil || user.GetID() <= 0 {
		return nil, ErrUserRequired
	}

	if err := e.ensureNoRecord(ctx, user); err != nil {
		return nil, e.registrationFailed(ctx, user, username, err)
	}
	if err := e.ensureUsernameFree(ctx, username, user.GetID()); err != nil {
		return nil, e.registrationFailed(ctx, user, username, err)
	}

	if looksLikeEmail(username) {
		if !strings.EqualFold(username, user.GetEmail()) {
			return nil, ErrEmailUsernameMismatch
		}
		owner, err := e.users.FindByEmail(ctx, username)
		switch {
		case err == nil && owner.GetID() != user.GetID():
			return nil, e.registrationFailed(ctx, user, username, ErrEmailTaken)
		case err != nil && !errors.Is(err, ErrUserNotFound):
			return nil, fmt.Errorf("find user by email: %w", err)
		}
	}

	hash, err := e.hashPassword(pass)
	if err != nil {
		return nil, err
	}
	key, err := session.NewSessionKey()
	if err != nil {
		return nil, fmt.Errorf("generate session key: %w", err)
	}

	rec := &AuthenticationRecord{
		UserID:       user.GetID(),
		Username:     username,
		PasswordHash: hash,
		SessionKey:   key,
	}
	if err := e.auth.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create authentication record: %w", err)
	}
	user.SetAuthenticationRecord(rec)

	e.metricInc(MetricAccountRegistered)
	e.emitAudit(ctx, nil, AuditAccountRegistered, true, rec.UserID, rec.Username, nil, nil)
	return rec, nil
}

func (e *Engine) ensureNoRecord(ctx context.Context, user User) error {
	if user.AuthenticationRecord() != nil {
		return ErrRecordExists
	}
	_, err := e.auth.FindByUserID(ctx, user.GetID())
	switch {
	case err == nil:
		return ErrRecordExists
	case errors.Is(err, ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("find authentication record: %w", err)
	}
}

func (e *Engine) ensureUsernameFree(ctx context.Context, username string, owner int64) error {
	rec, err := e.auth.FindByUsername(ctx, username)
	switch {
	case err == nil && rec.UserID != owner:
		return ErrUsernameTaken
	case err == nil, errors.Is(err, ErrRecordNotFound):
		return nil
	default:
		return fmt.Errorf("find authentication record: %w", err)
	}
}

func (e *Engine) registrationFailed(ctx context.Context, user User, username string, err error) error {
	if errors.Is(err, ErrRecordExists) || errors.Is(err, ErrUsernameTaken) || errors.Is(err, ErrEmailTaken) {
		e.metricInc(MetricAccountDuplicate)
		e.emitAudit(ctx, nil, AuditAccountRegistered, false, user.GetID(), username, err, nil)
	}
	return err
}

// ChangeUsername renames the user's authentication record. Renaming
// changes the expected hash cookie name, so the user must log in again.
func (e *Engine) ChangeUsername(ctx context.Context, user User, newUsername string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	rec, err := e.recordFor(ctx, user)
	if err != nil {
		return err
	}
	if rec.Username == newUsername {
		return nil
	}
	if err := e.ensureUsernameFree(ctx, newUsername, rec.UserID); err != nil {
		return err
	}

	previous := rec.Username
	rec.Username = newUsername
	if err := e.auth.Save(ctx, rec); err != nil {
		rec.Username = previous
		return fmt.Errorf("save authentication record: %w", err)
	}

	e.metricInc(MetricUsernameChanged)
	e.emitAudit(ctx, nil, AuditUsernameChanged, true, rec.UserID, newUsername, nil, map[string]string{"previous": previous})
	return nil
}

// VerifyPassword reports whether pass matches the user's stored hash.
func (e *Engine) VerifyPassword(ctx context.Context, user User, pass string) (bool, error) {
	if e == nil {
		return false, ErrEngineNotReady
	}
	rec, err := e.recordFor(ctx, user)
	if err != nil {
		return false, err
	}
	ok, err := e.hasher.Verify(pass, rec.PasswordHash)
	if err != nil {
		return false, fmt.Errorf("verify password: %w", err)
	}
	return ok, nil
}

// ResetPassword replaces the user's password and rotates the session key,
// which logs out every client.
func (e *Engine) ResetPassword(ctx context.Context, user User, newPass string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	rec, err := e.recordFor(ctx, user)
	if err != nil {
		return err
	}
	if err := e.checkStrength(user, rec.Username, newPass); err != nil {
		return err
	}

	hash, err := e.hashPassword(newPass)
	if err != nil {
		return err
	}
	previous := rec.PasswordHash
	rec.PasswordHash = hash
	if err := e.rotateSessionKey(ctx, rec); err != nil {
		rec.PasswordHash = previous
		return err
	}

	e.metricInc(MetricPasswordReset)
	e.emitAudit(ctx, nil, AuditPasswordReset, true, rec.UserID, rec.Username, nil, nil)
	return nil
}

// recordFor returns the user's authentication record, loading it through
// the provider when the back-reference is not populated.
func (e *Engine) recordFor(ctx context.Context, user User) (*AuthenticationRecord, error) {
	if user == nil || user.GetID() <= 0 {
		return nil, ErrUserRequired
	}
	if rec := user.AuthenticationRecord(); rec != nil {
		return rec, nil
	}

	rec, err := e.auth.FindByUserID(ctx, user.GetID())
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNoAuthenticationRecord
		}
		return nil, fmt.Errorf("find authentication record: %w", err)
	}
	user.SetAuthenticationRecord(rec)
	return rec, nil
}

func (e *Engine) checkStrength(user User, username, pass string) error {
	var inputs []string
	if username != "" {
		inputs = append(inputs, username)
	}
	if user != nil && user.GetEmail() != "" {
		inputs = append(inputs, user.GetEmail())
	}
	if !e.checker.IsStrong(pass, inputs) {
		return ErrWeakPassword
	}
	return nil
}

func (e *Engine) hashPassword(pass string) (string, error) {
	hash, err := e.hasher.Hash(pass)
	if err != nil {
		if errors.Is(err, password.ErrTooShort) {
			return "", fmt.Errorf("%w: %v", ErrWeakPassword, err)
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}
