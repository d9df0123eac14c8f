package goGate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"
	"time"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/session"
	"github.com/sirupsen/logrus"
)

// Engine authenticates users through the session cookie protocol. An
// Engine is built once and shared; all request-scoped state lives on the
// *Request passed to each call.
type Engine struct {
	config  Config
	codec   *session.Codec
	hasher  *password.Argon2
	checker password.Checker

	auth   AuthenticationProvider
	users  UserProvider
	tokens ResetTokenProvider

	audit   *audit.Dispatcher
	metrics *Metrics
	log     logrus.FieldLogger
	clock   func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if dropped := e.audit.Dropped(); dropped > 0 {
		e.log.WithField("dropped", dropped).Warn("audit events dropped under backpressure")
	}
	e.audit.Close()
}

// Authenticate checks a username and password. When no record carries the
// username and it looks like an email address, the user owning that email
// is tried instead. On success the session key is rotated, fresh cookies
// are written to req and the identity is cached on it.
func (e *Engine) Authenticate(ctx context.Context, req *Request, username, pass string) (User, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	rec, err := e.auth.FindByUsername(ctx, username)
	if errors.Is(err, ErrRecordNotFound) && looksLikeEmail(username) {
		rec, err = e.recordByEmail(ctx, username)
	}
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			e.loginFailed(ctx, req, 0, username, ErrNoSuchUser)
			return nil, ErrNoSuchUser
		}
		return nil, fmt.Errorf("find authentication record: %w", err)
	}

	ok, err := e.hasher.Verify(pass, rec.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		e.loginFailed(ctx, req, rec.UserID, username, ErrBadPassword)
		return nil, ErrBadPassword
	}

	user, err := e.users.FindByID(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.loginFailed(ctx, req, rec.UserID, username, ErrNoSuchUser)
			return nil, ErrNoSuchUser
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	e.upgradeHash(rec, pass)
	if err := e.rotateSessionKey(ctx, rec); err != nil {
		return nil, err
	}
	user.SetAuthenticationRecord(rec)

	if req != nil {
		if err := e.issueCookies(req, rec, e.transient(req)); err != nil {
			return nil, err
		}
		req.setIdentity(user)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, req, AuditLoginSuccess, true, rec.UserID, rec.Username, nil, nil)
	return user, nil
}

func (e *Engine) recordByEmail(ctx context.Context, email string) (*AuthenticationRecord, error) {
	user, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	if rec := user.AuthenticationRecord(); rec != nil {
		return rec, nil
	}
	return e.auth.FindByUserID(ctx, user.GetID())
}

func (e *Engine) upgradeHash(rec *AuthenticationRecord, pass string) {
	if !e.config.Password.UpgradeOnLogin {
		return
	}
	stale, err := e.hasher.NeedsUpgrade(rec.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := e.hasher.Hash(pass)
	if err != nil {
		e.log.WithError(err).WithField("user_id", rec.UserID).Warn("password rehash failed")
		return
	}
	rec.PasswordHash = hash
	e.metricInc(MetricPasswordRehashed)
}

func (e *Engine) loginFailed(ctx context.Context, req *Request, userID int64, username string, err error) {
	e.metricInc(MetricLoginFailure)
	e.emitAudit(ctx, req, AuditLoginFailure, false, userID, username, err, nil)
}

// Identity returns the user identified by the cookies on req, or nil.
// Every failure is absorbed: tampered, stale or malformed cookies simply
// mean no identity. The first result is cached on req.
func (e *Engine) Identity(ctx context.Context, req *Request) User {
	if e == nil || req == nil {
		return nil
	}
	if req.resolved {
		return req.identity
	}

	start := time.Now()
	user, err := e.resolveIdentity(ctx, req)
	if e.metrics.Enabled() {
		e.metrics.Observe(MetricIdentityLatency, time.Since(start))
	}

	if err != nil {
		_, presented := req.Cookie(e.codec.Names().User)
		e.purgeHashCookies(req, "")
		req.setIdentity(nil)
		if presented {
			e.metricInc(MetricIdentityRejected)
			e.log.WithError(err).Debug("session cookies rejected")
			e.emitAudit(ctx, req, AuditIdentityRejected, false, 0, "", err, nil)
		}
		return nil
	}

	e.metricInc(MetricIdentityResolved)
	req.setIdentity(user)
	return user
}

func (e *Engine) resolveIdentity(ctx context.Context, req *Request) (User, error) {
	userID, suffix, err := e.codec.OpenUser(req)
	if err != nil {
		return nil, err
	}

	rec, err := e.auth.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, ErrNoSuchUser
		}
		return nil, err
	}

	stamp, err := e.codec.OpenHash(req, suffix, rec.SessionKey, rec.UserID, rec.Username)
	if err != nil {
		return nil, err
	}

	user, err := e.users.FindByID(ctx, rec.UserID)
	if err != nil {
		return nil, err
	}
	user.SetAuthenticationRecord(rec)

	current := e.codec.HashCookieName(rec.SessionKey, rec.Username)
	e.purgeHashCookies(req, current)

	if e.config.Cookie.Duration > 0 && !stamp.SessionOnly {
		if err := e.issueCookies(req, rec, false); err != nil {
			e.log.WithError(err).Warn("sliding cookie re-issue failed")
		}
	}
	return user, nil
}

// HasIdentity reports whether Identity resolves a user.
func (e *Engine) HasIdentity(ctx context.Context, req *Request) bool {
	return e.Identity(ctx, req) != nil
}

// ClearIdentity logs the current user out: every auth cookie is deleted,
// the cached identity is dropped, and the user's session key is rotated so
// cookie sets held by other clients stop working too.
func (e *Engine) ClearIdentity(ctx context.Context, req *Request) error {
	if e == nil {
		return ErrEngineNotReady
	}
	if req == nil {
		return nil
	}

	user := e.Identity(ctx, req)
	e.clearCookies(req)
	req.setIdentity(nil)

	if user == nil {
		return nil
	}
	rec := user.AuthenticationRecord()
	if rec == nil {
		return nil
	}
	if err := e.rotateSessionKey(ctx, rec); err != nil {
		return err
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, req, AuditLogout, true, rec.UserID, rec.Username, nil, nil)
	return nil
}

func (e *Engine) rotateSessionKey(ctx context.Context, rec *AuthenticationRecord) error {
	key, err := session.NewSessionKey()
	if err != nil {
		return fmt.Errorf("generate session key: %w", err)
	}
	previous := rec.SessionKey
	rec.SessionKey = key
	if err := e.auth.Save(ctx, rec); err != nil {
		rec.SessionKey = previous
		return fmt.Errorf("save authentication record: %w", err)
	}
	return nil
}

func (e *Engine) transient(req *Request) bool {
	if req != nil && req.transient != nil {
		return *req.transient
	}
	return e.config.Cookie.Transient
}

func (e *Engine) issueCookies(req *Request, rec *AuthenticationRecord, transient bool) error {
	now := e.now()
	d := e.config.Cookie.Duration
	sessionOnly := transient || d <= 0
	values, err := e.codec.Issue(rec.UserID, rec.Username, rec.SessionKey, now, sessionOnly)
	if err != nil {
		return fmt.Errorf("issue session cookies: %w", err)
	}

	var (
		expires time.Time
		maxAge  int
		stamp   = "0"
	)
	if !sessionOnly {
		expires = now.Add(d)
		maxAge = int(d / time.Second)
		stamp = strconv.FormatInt(expires.Unix(), 10)
	}

	names := e.codec.Names()
	e.purgeHashCookies(req, values.HashName)
	req.setCookie(e.cookie(names.User, values.User, expires, maxAge, true))
	req.setCookie(e.cookie(values.HashName, values.Hash, expires, maxAge, true))
	req.setCookie(e.cookie(names.VerifyUser, values.VerifyUser, expires, maxAge, true))
	req.setCookie(e.cookie(names.VerifyHash, values.VerifyHash, expires, maxAge, true))
	req.setCookie(e.cookie(names.Timestamp, stamp, expires, maxAge, false))
	return nil
}

func (e *Engine) cookie(name, value string, expires time.Time, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     e.config.Cookie.Path,
		Domain:   e.config.Cookie.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   e.config.Cookie.Secure,
		HttpOnly: httpOnly,
		SameSite: e.config.Cookie.sameSiteMode(),
	}
}

func (e *Engine) deleteCookie(req *Request, name string) {
	c := e.cookie(name, "", time.Unix(0, 0), -1, true)
	req.setCookie(c)
}

// purgeHashCookies deletes every hash-prefixed cookie except keep.
func (e *Engine) purgeHashCookies(req *Request, keep string) {
	purged := 0
	for _, name := range req.CookieNames() {
		if name != keep && e.codec.IsHashCookie(name) {
			e.deleteCookie(req, name)
			purged++
		}
	}
	if purged > 0 {
		e.metricInc(MetricStrayCookiesPurged)
		e.log.WithField("count", purged).Debug("purged stray hash cookies")
	}
}

func (e *Engine) clearCookies(req *Request) {
	names := e.codec.Names()
	for _, name := range []string{names.User, names.VerifyUser, names.VerifyHash, names.Timestamp} {
		e.deleteCookie(req, name)
	}
	e.purgeHashCookies(req, "")
}

func looksLikeEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}
