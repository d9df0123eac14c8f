package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/access"
	"github.com/MrEthical07/goGate/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// deliverFunc hands a fresh recovery token to its owner out of band.
type deliverFunc func(ctx context.Context, user goGate.User, tok *goGate.ResetToken) error

type server struct {
	auth      *goGate.Engine
	accounts  accountStore
	guards    *access.Guards
	access    access.Config
	providers access.Providers
	guard     *middleware.Guard
	metrics   http.Handler
	deliver   deliverFunc
	log       logrus.FieldLogger

	// defaultRole is assigned to every new account. Empty assigns none.
	defaultRole string
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.guard.Authenticate)

		r.With(s.guard.Protect("SessionController", "register")).Post("/register", s.handleRegister)
		r.With(s.guard.Protect("SessionController", "login")).Post("/login", s.handleLogin)
		r.With(s.guard.Protect("SessionController", "logout")).Post("/logout", s.handleLogout)
		r.With(s.guard.Protect("RecoveryController", "request")).Post("/recovery", s.handleRecoveryRequest)
		r.With(s.guard.Protect("RecoveryController", "confirm")).Post("/recovery/confirm", s.handleRecoveryConfirm)

		r.With(s.guard.Protect("AccountController", "show")).Get("/me", s.handleMe)
		r.With(s.guard.Protect("AccountController", "password")).Post("/me/password", s.handleChangePassword)

		r.With(s.guard.Protect("AdminController", "assignRole")).Post("/admin/users/{id}/roles", s.handleAssignRole)
		r.With(s.guard.Protect("AdminController", "grant")).Post("/admin/grants", s.handleGrant)
		r.With(s.guard.Protect("AdminController", "security")).Get("/admin/security", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, s.auth.SecurityReport())
		})
	})
	return r
}

/*
====================================
SESSIONS
====================================
*/

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Username string `json:"username"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.Username == "" {
		body.Username = body.Email
	}

	ctx := r.Context()
	acc, err := s.accounts.Insert(ctx, body.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}

	req := requestFrom(r)
	req.SetTransient(!body.Remember)
	if _, err := s.auth.Create(ctx, req, acc, body.Username, body.Password); err != nil {
		if derr := s.accounts.Delete(ctx, acc.id); derr != nil {
			s.log.WithError(derr).WithField("account_id", acc.id).Warn("orphan account not removed")
		}
		s.writeError(w, err)
		return
	}
	if s.defaultRole != "" {
		if err := s.assignRole(ctx, acc, s.defaultRole); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": acc.id, "email": acc.email})
}

func (s *server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Remember bool   `json:"remember"`
	}
	if !decode(w, r, &body) {
		return
	}

	req := requestFrom(r)
	req.SetTransient(!body.Remember)
	user, err := s.auth.Authenticate(r.Context(), req, body.Username, body.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": user.GetID(), "email": user.GetEmail()})
}

func (s *server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.ClearIdentity(r.Context(), requestFrom(r)); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*
====================================
RECOVERY
====================================
*/

func (s *server) handleRecoveryRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	user, err := s.accounts.FindByEmail(ctx, body.Email)
	if errors.Is(err, goGate.ErrUserNotFound) {
		// Unknown addresses get the same answer as known ones.
		w.WriteHeader(http.StatusAccepted)
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}

	tok, err := s.auth.CreateRecoveryToken(ctx, requestFrom(r), user)
	if err != nil {
		switch {
		case errors.Is(err, goGate.ErrNoAuthenticationRecord):
			w.WriteHeader(http.StatusAccepted)
			return
		case errors.Is(err, goGate.ErrTooManyRecoveryAttempts):
			// A throttled account must not be told apart from an unknown one.
			s.log.WithField("user_id", user.GetID()).Warn("recovery request throttled")
			w.WriteHeader(http.StatusAccepted)
			return
		}
		s.writeError(w, err)
		return
	}
	if err := s.deliverToken(ctx, user, tok); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *server) deliverToken(ctx context.Context, user goGate.User, tok *goGate.ResetToken) error {
	if s.deliver != nil {
		return s.deliver(ctx, user, tok)
	}
	s.log.WithFields(logrus.Fields{
		"user_id":  user.GetID(),
		"token_id": tok.ID,
	}).Info("recovery token issued; no delivery configured")
	return nil
}

func (s *server) handleRecoveryConfirm(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		TokenID  string `json:"token_id"`
		Token    string `json:"token"`
		Password string `json:"password"`
	}
	if !decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	user, err := s.accounts.FindByEmail(ctx, body.Email)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.auth.ChangePasswordWithRecoveryToken(ctx, requestFrom(r), user, body.TokenID, body.Token, body.Password); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*
====================================
ACCOUNT
====================================
*/

func (s *server) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := s.auth.Identity(ctx, requestFrom(r))
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	roles, err := access.FromContext(ctx).Roles(ctx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    user.GetID(),
		"email": user.GetEmail(),
		"roles": roles,
	})
}

func (s *server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Current string `json:"current"`
		New     string `json:"new"`
	}
	if !decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	req := requestFrom(r)
	user := s.auth.Identity(ctx, req)
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ok, err := s.auth.VerifyPassword(ctx, user, body.Current)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !ok {
		s.writeError(w, goGate.ErrBadPassword)
		return
	}
	if err := s.auth.ResetPassword(ctx, user, body.New); err != nil {
		s.writeError(w, err)
		return
	}
	// The reset rotated the session key; log this client back in.
	if _, err := s.auth.Authenticate(ctx, req, user.GetEmail(), body.New); err != nil {
		s.log.WithError(err).Warn("re-authentication after password change failed")
	}
	w.WriteHeader(http.StatusNoContent)
}

/*
====================================
ADMIN
====================================
*/

func (s *server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "bad user id", http.StatusBadRequest)
		return
	}
	var body struct {
		Role string `json:"role"`
	}
	if !decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	user, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	subject, ok := user.(access.User)
	if !ok {
		s.writeError(w, errors.New("account has no role view"))
		return
	}
	if err := s.assignRole(ctx, subject, body.Role); err != nil {
		s.writeError(w, err)
		return
	}
	names := make([]string, 0, len(subject.GetRoles()))
	for _, role := range subject.GetRoles() {
		names = append(names, role.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "roles": names})
}

// assignRole adds a role to subject through a dedicated access engine, so
// the caller's own engine keeps its compiled roles.
func (s *server) assignRole(ctx context.Context, subject access.User, role string) error {
	target := access.New(s.guards, s.access, s.providers)
	if err := target.SetUser(subject); err != nil {
		return err
	}
	return target.AddRoleByName(ctx, role)
}

func (s *server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role          string `json:"role"`
		ResourceClass string `json:"resource_class"`
		ResourceID    string `json:"resource_id"`
		Action        string `json:"action"`
	}
	if !decode(w, r, &body) {
		return
	}

	ctx := r.Context()
	role, err := s.providers.Roles.GetRoleWithName(ctx, body.Role)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resource := access.ResourceRef{Class: body.ResourceClass, ID: body.ResourceID}
	if err := access.FromContext(ctx).GrantRoleAccess(ctx, role, resource, body.Action); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

/*
====================================
HELPERS
====================================
*/

// requestFrom returns the goGate.Request stored by the guard middleware.
func requestFrom(r *http.Request) *goGate.Request {
	req, _ := goGate.RequestFromContext(r.Context())
	return req
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
		http.Error(w, "internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, goGate.ErrBadPassword),
		errors.Is(err, goGate.ErrNoSuchUser):
		return http.StatusUnauthorized
	case errors.Is(err, goGate.ErrUserNotFound),
		errors.Is(err, access.ErrRoleNotFound),
		errors.Is(err, access.ErrInvalidRole):
		return http.StatusNotFound
	case errors.Is(err, errEmailExists),
		errors.Is(err, goGate.ErrRecordExists),
		errors.Is(err, goGate.ErrUsernameTaken),
		errors.Is(err, goGate.ErrEmailTaken),
		errors.Is(err, access.ErrExistingAccess):
		return http.StatusConflict
	case errors.Is(err, goGate.ErrWeakPassword),
		errors.Is(err, goGate.ErrEmailUsernameMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, goGate.ErrTooManyRecoveryAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, access.ErrPrivilegeEscalation):
		return http.StatusForbidden
	case errors.Is(err, goGate.ErrInvalidResetToken),
		errors.Is(err, goGate.ErrMismatchedResetToken),
		errors.Is(err, goGate.ErrResetTokenUsed),
		errors.Is(err, goGate.ErrResetTokenFingerprint),
		errors.Is(err, goGate.ErrResetTokenIP),
		errors.Is(err, goGate.ErrResetTokenUser),
		errors.Is(err, goGate.ErrResetTokenExpired),
		errors.Is(err, goGate.ErrTokenNotFound):
		return http.StatusBadRequest
	case errors.Is(err, goGate.ErrPasswordResetProhibited):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}
