package password

import (
	"errors"
	"strings"
	"testing"
)

func testConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestArgon2(t *testing.T, cfg Config) *Argon2 {
	t.Helper()
	h, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher := newTestArgon2(t, testConfig())

	hash, err := hasher.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := hasher.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}

	ok, err = hasher.Verify("P@ssw0rd-ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestVerifyUsesStoredParameters(t *testing.T) {
	old := newTestArgon2(t, testConfig())
	hash, err := old.Hash("stored-params-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cfg := testConfig()
	cfg.Time = 2
	current := newTestArgon2(t, cfg)

	ok, err := current.Verify("stored-params-password", hash)
	if err != nil || !ok {
		t.Fatalf("expected verification with stored parameters, ok=%v err=%v", ok, err)
	}
}

func TestNeedsUpgrade(t *testing.T) {
	old := newTestArgon2(t, testConfig())
	hash, err := old.Hash("upgrade-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	up, err := old.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if up {
		t.Fatal("expected NeedsUpgrade to return false for current parameters")
	}

	cfg := testConfig()
	cfg.Memory = 16 * 1024
	stronger := newTestArgon2(t, cfg)
	up, err = stronger.NeedsUpgrade(hash)
	if err != nil {
		t.Fatalf("NeedsUpgrade error: %v", err)
	}
	if !up {
		t.Fatal("expected NeedsUpgrade to return true for weaker hash parameters")
	}
}

func TestHashTooShortPassword(t *testing.T) {
	hasher := newTestArgon2(t, testConfig())

	for _, pw := range []string{"", "short", "123456789"} {
		if _, err := hasher.Hash(pw); !errors.Is(err, ErrTooShort) {
			t.Fatalf("Hash(%q): expected ErrTooShort, got %v", pw, err)
		}
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newTestArgon2(t, testConfig())
	hash, err := hasher.Hash("malformed-test")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	cases := []string{
		"not-a-phc-hash",
		strings.Replace(hash, "$v=19$", "$v=18$", 1),
		strings.Replace(hash, "argon2id", "argon2i", 1),
		strings.Replace(hash, "m=8192", "m=1024", 1),
		strings.Replace(hash, ",p=1", ",x=1", 1),
	}
	for _, c := range cases {
		if _, err := hasher.Verify("malformed-test", c); !errors.Is(err, ErrInvalidHash) {
			t.Fatalf("Verify(%q): expected ErrInvalidHash, got %v", c, err)
		}
	}
}

func TestNewArgon2RejectsWeakConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SaltLength = 8
	if _, err := NewArgon2(cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}
