package goGate

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGate/internal/audit"
	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/session"
	"github.com/sirupsen/logrus"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config

	auth    AuthenticationProvider
	users   UserProvider
	tokens  ResetTokenProvider
	checker password.Checker

	auditSink AuditSink
	logger    logrus.FieldLogger
	clock     func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{config: DefaultConfig()}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithAuthenticationProvider sets the authentication record store. Required.
func (b *Builder) WithAuthenticationProvider(p AuthenticationProvider) *Builder {
	b.auth = p
	return b
}

// WithUserProvider sets the application user lookup. Required.
func (b *Builder) WithUserProvider(p UserProvider) *Builder {
	b.users = p
	return b
}

// WithResetTokenProvider enables password recovery. Without it, recovery
// operations return ErrPasswordResetProhibited.
func (b *Builder) WithResetTokenProvider(p ResetTokenProvider) *Builder {
	b.tokens = p
	return b
}

// WithPasswordChecker sets the strength checker used by Create and
// ResetPassword. The default accepts everything the hasher accepts.
func (b *Builder) WithPasswordChecker(c password.Checker) *Builder {
	b.checker = c
	return b
}

// WithAuditSink sets the destination for audit events. It only takes
// effect when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the engine logger. Config.Log.Level is ignored when a
// logger is supplied.
func (b *Builder) WithLogger(logger logrus.FieldLogger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source, mainly for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.auth == nil {
		return nil, errors.New("authentication provider is required")
	}
	if b.users == nil {
		return nil, errors.New("user provider is required")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	systemKey, err := cfg.Cookie.decodeSystemKey()
	if err != nil {
		return nil, err
	}
	codec, err := session.NewCodec(systemKey, cfg.Cookie.Names)
	if err != nil {
		return nil, fmt.Errorf("cookie codec: %w", err)
	}

	hasher, err := password.NewArgon2(cfg.Password.Config)
	if err != nil {
		return nil, err
	}

	checker := b.checker
	if checker == nil {
		checker = password.NoopChecker{}
	}

	logger := b.logger
	if logger == nil {
		l := logrus.New()
		if cfg.Log.Level != "" {
			level, _ := logrus.ParseLevel(cfg.Log.Level)
			l.SetLevel(level)
		}
		logger = l
	}

	b.built = true

	return &Engine{
		config:  cfg,
		codec:   codec,
		hasher:  hasher,
		checker: checker,
		auth:    b.auth,
		users:   b.users,
		tokens:  b.tokens,
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.auditSink),
		metrics: NewMetrics(cfg.Metrics),
		log:     logger.WithField("component", "gogate"),
		clock:   b.clock,
	}, nil
}
