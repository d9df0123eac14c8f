package goGate

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/goGate/password"
)

func TestCreateRegistersAndLogsIn(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.users.users[5] = &testUser{id: 5, email: "sam@example.com"}

	user := &testUser{id: 5, email: "sam@example.com"}
	req := newTestRequest()
	rec, err := env.engine.Create(ctx, req, user, "sam@example.com", testPassword)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.Username != "sam@example.com" || len(rec.SessionKey) != 32 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if user.AuthenticationRecord() != rec {
		t.Fatal("expected the user back-reference to point at the new record")
	}
	if env.engine.Identity(ctx, req) != user {
		t.Fatal("expected Create to log the user in")
	}
	if env.engine.Identity(ctx, followUp(req)) == nil {
		t.Fatal("expected cookies from Create to resolve on the next request")
	}
}

func TestCreateRejectsWeakPassword(t *testing.T) {
	env := newTestEnv(t, func(_ *Config, b *Builder) {
		b.WithPasswordChecker(password.PolicyChecker{MinLength: 12, RequireDigit: true, ForbidUserInputs: true})
	})
	user := &testUser{id: 5, email: "sam@example.com"}

	for _, pw := range []string{"no-digits-at-all", "sam-is-great-123", "short1"} {
		if _, err := env.engine.Create(context.Background(), newTestRequest(), user, "sam", pw); !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("Create(%q): expected ErrWeakPassword, got %v", pw, err)
		}
	}
}

func TestRegisterShortPasswordIsWeak(t *testing.T) {
	env := newTestEnv(t, nil)
	user := &testUser{id: 5, email: "sam@example.com"}

	if _, err := env.engine.RegisterAuthenticationRecord(context.Background(), user, "sam", "tiny"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}
}

func TestRegisterAuthenticationRecordValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.addUser(t, 1, "alex@example.com", "alex", testPassword)
	env.users.users[2] = &testUser{id: 2, email: "blair@example.com"}

	cases := []struct {
		name     string
		user     User
		username string
		want     error
	}{
		{"unsaved user", &testUser{id: 0}, "new", ErrUserRequired},
		{"nil user", nil, "new", ErrUserRequired},
		{"existing record", &testUser{id: 1, email: "alex@example.com"}, "alex2", ErrRecordExists},
		{"username taken", &testUser{id: 2, email: "blair@example.com"}, "alex", ErrUsernameTaken},
		{"email mismatch", &testUser{id: 2, email: "blair@example.com"}, "someone@example.com", ErrEmailUsernameMismatch},
		{"email owned by other user", &testUser{id: 3, email: "alex@example.com"}, "alex@example.com", ErrEmailTaken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.RegisterAuthenticationRecord(ctx, tc.user, tc.username, testPassword)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if got := env.engine.MetricsSnapshot().Counters[MetricAccountDuplicate]; got != 3 {
		t.Fatalf("expected 3 duplicate registrations, got %d", got)
	}
}

func TestChangeUsername(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alex := env.addUser(t, 1, "alex@example.com", "alex", testPassword)
	env.addUser(t, 2, "blair@example.com", "blair", testPassword)

	saves := env.auth.saves
	if err := env.engine.ChangeUsername(ctx, alex, "alex"); err != nil {
		t.Fatalf("no-op ChangeUsername failed: %v", err)
	}
	if env.auth.saves != saves {
		t.Fatal("expected unchanged username not to be saved")
	}

	if err := env.engine.ChangeUsername(ctx, alex, "blair"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if err := env.engine.ChangeUsername(ctx, alex, "alexander"); err != nil {
		t.Fatalf("ChangeUsername failed: %v", err)
	}
	if env.auth.get(1).Username != "alexander" {
		t.Fatal("expected stored username to change")
	}
	if _, err := env.engine.Authenticate(ctx, newTestRequest(), "alexander", testPassword); err != nil {
		t.Fatalf("expected login under the new username, got %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	alex := env.addUser(t, 1, "alex@example.com", "alex", testPassword)

	ok, err := env.engine.VerifyPassword(ctx, alex, testPassword)
	if err != nil || !ok {
		t.Fatalf("expected password to verify, ok=%v err=%v", ok, err)
	}
	ok, err = env.engine.VerifyPassword(ctx, alex, "not-the-password")
	if err != nil || ok {
		t.Fatalf("expected wrong password to fail, ok=%v err=%v", ok, err)
	}

	if _, err := env.engine.VerifyPassword(ctx, &testUser{}, testPassword); !errors.Is(err, ErrUserRequired) {
		t.Fatalf("expected ErrUserRequired, got %v", err)
	}
	if _, err := env.engine.VerifyPassword(ctx, &testUser{id: 9}, testPassword); !errors.Is(err, ErrNoAuthenticationRecord) {
		t.Fatalf("expected ErrNoAuthenticationRecord, got %v", err)
	}
}

func TestResetPasswordRotatesSessionKey(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	env.addUser(t, 1, "alex@example.com", "alex", testPassword)

	login := newTestRequest()
	user, err := env.engine.Authenticate(ctx, login, "alex", testPassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	if err := env.engine.ResetPassword(ctx, user, "brand-new-password"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if env.engine.Identity(ctx, followUp(login)) != nil {
		t.Fatal("expected existing sessions to end after a reset")
	}
	if _, err := env.engine.Authenticate(ctx, newTestRequest(), "alex", testPassword); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := env.engine.Authenticate(ctx, newTestRequest(), "alex", "brand-new-password"); err != nil {
		t.Fatalf("expected new password to work, got %v", err)
	}
}
