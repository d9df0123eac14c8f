package middleware

import (
	"context"
	"net/http"

	goGate "github.com/MrEthical07/goGate"
	"github.com/MrEthical07/goGate/access"
	"github.com/sirupsen/logrus"
)

// DenyHandler renders a failed guard check.
type DenyHandler func(w http.ResponseWriter, r *http.Request, reason access.DenyReason)

// SubjectFunc maps an authenticated identity to its authorization view. A
// nil result leaves the access engine without a user.
type SubjectFunc func(ctx context.Context, user goGate.User) (access.User, error)

// Guard builds the request-scoped authentication and authorization state
// and enforces controller/action guards before handlers run.
type Guard struct {
	auth      *goGate.Engine
	guards    *access.Guards
	config    access.Config
	providers access.Providers

	onDeny  DenyHandler
	subject SubjectFunc
	log     logrus.FieldLogger
}

// Option configures a Guard.
type Option func(*Guard)

// WithDenyHandler replaces the default 401/403 responses.
func WithDenyHandler(h DenyHandler) Option {
	return func(g *Guard) { g.onDeny = h }
}

// WithSubject sets how identities become access users. By default the
// identity itself must implement access.User.
func WithSubject(fn SubjectFunc) Option {
	return func(g *Guard) { g.subject = fn }
}

// WithLogger sets the logger used for guard configuration errors.
func WithLogger(l logrus.FieldLogger) Option {
	return func(g *Guard) { g.log = l }
}

// NewGuard returns a Guard. auth and guards are shared across requests.
func NewGuard(auth *goGate.Engine, guards *access.Guards, cfg access.Config, providers access.Providers, opts ...Option) *Guard {
	g := &Guard{
		auth:      auth,
		guards:    guards,
		config:    cfg,
		providers: providers,
		onDeny:    DefaultDenyHandler,
		subject:   assertSubject,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// DefaultDenyHandler answers 401 for AccessUnauthorized and 403 otherwise.
func DefaultDenyHandler(w http.ResponseWriter, _ *http.Request, reason access.DenyReason) {
	if reason == access.AccessUnauthorized {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Error(w, "forbidden", http.StatusForbidden)
}

func assertSubject(_ context.Context, user goGate.User) (access.User, error) {
	sub, _ := user.(access.User)
	return sub, nil
}

// Authenticate resolves the identity and stores the goGate.Request and
// access.Engine in the request context without checking any guard.
func (g *Guard) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r, _, err := g.scope(w, r)
		if err != nil {
			g.fail(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Protect returns middleware enforcing the guard for controller/action.
func (g *Guard) Protect(controller, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r, engine, err := g.scope(w, r)
			if err != nil {
				g.fail(w, r, err)
				return
			}

			reason, err := engine.Check(r.Context(), controller, action)
			if err != nil {
				g.log.WithError(err).WithFields(logrus.Fields{
					"controller": controller,
					"action":     action,
				}).Error("guard check failed")
				http.Error(w, "internal server error", http.StatusInternalServerError)
				return
			}
			if reason != access.DenyNone {
				g.onDeny(w, r, reason)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Route wraps h with Protect(controller, action).
func (g *Guard) Route(controller, action string, h http.HandlerFunc) http.Handler {
	return g.Protect(controller, action)(h)
}

// scope reuses request state set by an outer Guard middleware or creates
// it.
func (g *Guard) scope(w http.ResponseWriter, r *http.Request) (*http.Request, *access.Engine, error) {
	ctx := r.Context()
	if engine := access.FromContext(ctx); engine != nil {
		if _, ok := goGate.RequestFromContext(ctx); ok {
			return r, engine, nil
		}
	}

	req := goGate.NewRequest(w, r)
	engine := access.New(g.guards, g.config, g.providers)
	if user := g.auth.Identity(ctx, req); user != nil {
		sub, err := g.subject(ctx, user)
		if err != nil {
			return r, nil, err
		}
		if sub != nil {
			if err := engine.SetUser(sub); err != nil {
				return r, nil, err
			}
		}
	}

	ctx = goGate.WithRequest(ctx, req)
	ctx = access.WithEngine(ctx, engine)
	return r.WithContext(ctx), engine, nil
}

func (g *Guard) fail(w http.ResponseWriter, _ *http.Request, err error) {
	g.log.WithError(err).Error("request scope setup failed")
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
