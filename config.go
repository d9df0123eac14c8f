package goGate

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goGate/password"
	"github.com/MrEthical07/goGate/session"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration. It is read once by
// Builder.Build and treated as immutable afterwards.
type Config struct {
	Cookie   CookieConfig   `yaml:"cookie"`
	Password PasswordConfig `yaml:"password"`
	Recovery RecoveryConfig `yaml:"recovery"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

/*
====================================
COOKIES
====================================
*/

// CookieConfig controls the session cookie set.
//
// SystemKey is the base64 (standard alphabet) encoding of at least 32
// random bytes. Duration 0 issues browser-session cookies and disables
// sliding re-issue; Transient forces the same for every login.
type CookieConfig struct {
	SystemKey string        `yaml:"system_key"`
	Duration  time.Duration `yaml:"duration"`
	Transient bool          `yaml:"transient"`
	Secure    bool          `yaml:"secure"`
	Domain    string        `yaml:"domain"`
	Path      string        `yaml:"path"`
	SameSite  string        `yaml:"same_site"`
	Names     session.Names `yaml:"names"`
}

func (c CookieConfig) decodeSystemKey() ([]byte, error) {
	if c.SystemKey == "" {
		return nil, errors.New("cookie system_key is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.SystemKey)
	if err != nil {
		return nil, fmt.Errorf("cookie system_key is not valid base64: %w", err)
	}
	if len(key) < session.KeySize {
		return nil, fmt.Errorf("cookie system_key must decode to >= %d bytes", session.KeySize)
	}
	return key, nil
}

func (c CookieConfig) sameSiteMode() http.SameSite {
	switch strings.ToLower(c.SameSite) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	case "lax", "":
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

/*
====================================
PASSWORDS
====================================
*/

// PasswordConfig holds Argon2id parameters. With UpgradeOnLogin, a stored
// hash produced under weaker parameters is replaced after the next
// successful login.
type PasswordConfig struct {
	password.Config `yaml:",inline"`
	UpgradeOnLogin  bool `yaml:"upgrade_on_login"`
}

/*
====================================
RECOVERY
====================================
*/

// RecoveryConfig controls password-recovery tokens. At most MaxRequests
// tokens may be requested per user inside Window. MaxAge 0 means tokens
// never expire on their own; they still die on any session-key rotation.
type RecoveryConfig struct {
	MaxRequests      int           `yaml:"max_requests"`
	Window           time.Duration `yaml:"window"`
	MaxAge           time.Duration `yaml:"max_age"`
	CheckFingerprint bool          `yaml:"check_fingerprint"`
	CheckIP          bool          `yaml:"check_ip"`
}

/*
====================================
AMBIENT
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// LogConfig selects the logrus level applied to the engine logger when
// Builder.WithLogger is not used.
type LogConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns production defaults with an empty system key.
func DefaultConfig() Config {
	return Config{
		Cookie: CookieConfig{
			Duration: 14 * 24 * time.Hour,
			Secure:   true,
			Path:     "/",
			SameSite: "lax",
			Names:    session.DefaultNames(),
		},
		Password: PasswordConfig{
			Config:         password.DefaultConfig(),
			UpgradeOnLogin: true,
		},
		Recovery: RecoveryConfig{
			MaxRequests:      5,
			Window:           5 * time.Minute,
			MaxAge:           24 * time.Hour,
			CheckFingerprint: true,
			CheckIP:          false,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if _, err := c.Cookie.decodeSystemKey(); err != nil {
		return err
	}
	if c.Cookie.Duration < 0 {
		return errors.New("cookie duration must be >= 0")
	}
	switch strings.ToLower(c.Cookie.SameSite) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("cookie same_site %q is not one of lax, strict, none", c.Cookie.SameSite)
	}
	if strings.EqualFold(c.Cookie.SameSite, "none") && !c.Cookie.Secure {
		return errors.New("cookie same_site none requires secure cookies")
	}

	if err := c.Password.Config.Validate(); err != nil {
		return err
	}

	if c.Recovery.MaxRequests <= 0 {
		return errors.New("recovery max_requests must be > 0")
	}
	if c.Recovery.Window <= 0 {
		return errors.New("recovery window must be > 0")
	}
	if c.Recovery.MaxAge < 0 {
		return errors.New("recovery max_age must be >= 0")
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("audit buffer_size must be > 0 when audit is enabled")
	}

	if c.Log.Level != "" {
		if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}

	return nil
}

// LoadConfig decodes YAML from r on top of DefaultConfig and validates the
// result. Durations use Go syntax ("15m", "336h").
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GenerateSystemKey returns a fresh base64 system key for CookieConfig.
func GenerateSystemKey() (string, error) {
	key, err := session.NewSessionKey()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key), nil
}
