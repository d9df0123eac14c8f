package goGate

import "time"

// SecurityReport summarizes the security-relevant settings of a running
// Engine.
type SecurityReport struct {
	CookieDuration   time.Duration
	TransientCookies bool
	SecureCookies    bool
	SameSite         string

	Argon2         PasswordConfigReport
	UpgradeOnLogin bool

	RecoveryEnabled     bool
	RecoveryMaxRequests int
	RecoveryWindow      time.Duration
	RecoveryMaxAge      time.Duration
	FingerprintBinding  bool
	IPBinding           bool

	AuditEnabled   bool
	MetricsEnabled bool
}

// PasswordConfigReport mirrors the Argon2id parameters in use.
type PasswordConfigReport struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// SecurityReport returns the effective security posture. Transient is true
// when cookies never outlive the browser session.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	cfg := e.config
	recovery := e.tokens != nil

	sameSite := cfg.Cookie.SameSite
	if sameSite == "" {
		sameSite = "lax"
	}

	return SecurityReport{
		CookieDuration:   cfg.Cookie.Duration,
		TransientCookies: cfg.Cookie.Transient || cfg.Cookie.Duration == 0,
		SecureCookies:    cfg.Cookie.Secure,
		SameSite:         sameSite,
		Argon2: PasswordConfigReport{
			Memory:      cfg.Password.Memory,
			Time:        cfg.Password.Time,
			Parallelism: cfg.Password.Parallelism,
			SaltLength:  cfg.Password.SaltLength,
			KeyLength:   cfg.Password.KeyLength,
		},
		UpgradeOnLogin:      cfg.Password.UpgradeOnLogin,
		RecoveryEnabled:     recovery,
		RecoveryMaxRequests: cfg.Recovery.MaxRequests,
		RecoveryWindow:      cfg.Recovery.Window,
		RecoveryMaxAge:      cfg.Recovery.MaxAge,
		FingerprintBinding:  recovery && cfg.Recovery.CheckFingerprint,
		IPBinding:           recovery && cfg.Recovery.CheckIP,
		AuditEnabled:        cfg.Audit.Enabled,
		MetricsEnabled:      cfg.Metrics.Enabled,
	}
}
