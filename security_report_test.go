package goGate

import (
	"testing"
	"time"
)

func TestSecurityReportReflectsConfig(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, _ *Builder) {
		cfg.Cookie.SameSite = ""
		cfg.Recovery.CheckIP = true
		cfg.Audit.Enabled = true
	})

	r := env.engine.SecurityReport()
	if r.CookieDuration != 14*24*time.Hour || r.TransientCookies {
		t.Fatalf("cookie lifetime: %+v", r)
	}
	if r.SecureCookies {
		t.Fatal("test config uses insecure cookies")
	}
	if r.SameSite != "lax" {
		t.Fatalf("same site: got %q", r.SameSite)
	}
	if r.Argon2.Memory != 8*1024 || r.Argon2.KeyLength != 32 {
		t.Fatalf("argon2: %+v", r.Argon2)
	}
	if !r.RecoveryEnabled || !r.FingerprintBinding || !r.IPBinding {
		t.Fatalf("recovery: %+v", r)
	}
	if r.RecoveryMaxRequests != 5 || r.RecoveryWindow != 5*time.Minute {
		t.Fatalf("recovery throttle: %+v", r)
	}
	if !r.AuditEnabled {
		t.Fatal("audit should be enabled")
	}
}

func TestSecurityReportWithoutRecovery(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config, b *Builder) {
		cfg.Cookie.Duration = 0
		b.WithResetTokenProvider(nil)
	})

	r := env.engine.SecurityReport()
	if !r.TransientCookies {
		t.Fatal("zero duration cookies are transient")
	}
	if r.RecoveryEnabled || r.FingerprintBinding || r.IPBinding {
		t.Fatalf("recovery should be off: %+v", r)
	}

	var nilEngine *Engine
	if got := nilEngine.SecurityReport(); got != (SecurityReport{}) {
		t.Fatalf("nil engine: %+v", got)
	}
}
