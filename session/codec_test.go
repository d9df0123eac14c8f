package session

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

type cookieJar map[string]string

func (j cookieJar) Cookie(name string) (string, bool) {
	v, ok := j[name]
	return v, ok
}

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(bytes.Repeat([]byte{7}, KeySize), Names{})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return c
}

func newTestKey(t *testing.T) []byte {
	t.Helper()
	k, err := NewSessionKey()
	if err != nil {
		t.Fatalf("NewSessionKey failed: %v", err)
	}
	return k
}

func issueJar(t *testing.T, c *Codec, userID int64, username string, key []byte) cookieJar {
	t.Helper()
	v, err := c.Issue(userID, username, key, time.Unix(1700000000, 0), false)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	n := c.Names()
	return cookieJar{
		n.User:       v.User,
		v.HashName:   v.Hash,
		n.VerifyUser: v.VerifyUser,
		n.VerifyHash: v.VerifyHash,
	}
}

func openJar(c *Codec, jar cookieJar, key []byte, userID int64, username string) error {
	id, suffix, err := c.OpenUser(jar)
	if err != nil {
		return err
	}
	if id != userID {
		return ErrMismatch
	}
	_, err = c.OpenHash(jar, suffix, key, userID, username)
	return err
}

func TestCodecRoundTrip(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	jar := issueJar(t, c, 42, "alex", key)

	id, suffix, err := c.OpenUser(jar)
	if err != nil {
		t.Fatalf("OpenUser failed: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected user 42, got %d", id)
	}

	stamp, err := c.OpenHash(jar, suffix, key, 42, "alex")
	if err != nil {
		t.Fatalf("OpenHash failed: %v", err)
	}
	if stamp.Issued.Unix() != 1700000000 || stamp.SessionOnly {
		t.Fatalf("unexpected stamp %+v", stamp)
	}
}

func TestCodecSealsSessionOnlyFlag(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	v, err := c.Issue(42, "alex", key, time.Unix(1700000000, 0), true)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	n := c.Names()
	jar := cookieJar{
		n.User:       v.User,
		v.HashName:   v.Hash,
		n.VerifyUser: v.VerifyUser,
		n.VerifyHash: v.VerifyHash,
	}

	_, suffix, err := c.OpenUser(jar)
	if err != nil {
		t.Fatalf("OpenUser failed: %v", err)
	}
	stamp, err := c.OpenHash(jar, suffix, key, 42, "alex")
	if err != nil {
		t.Fatalf("OpenHash failed: %v", err)
	}
	if !stamp.SessionOnly || stamp.Issued.Unix() != 1700000000 {
		t.Fatalf("expected a session-only stamp issued at 1700000000, got %+v", stamp)
	}
}

func TestCodecUsernameWithColons(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	jar := issueJar(t, c, 7, "a:b:c", key)

	if err := openJar(c, jar, key, 7, "a:b:c"); err != nil {
		t.Fatalf("expected colon username to round-trip, got %v", err)
	}
}

func TestCodecSingleCharacterTamperFails(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	jar := issueJar(t, c, 42, "alex", key)

	for name, value := range jar {
		for i := 0; i < len(value); i++ {
			tampered := cookieJar{}
			for k, v := range jar {
				tampered[k] = v
			}
			b := []byte(value)
			if b[i] == 'A' {
				b[i] = 'B'
			} else {
				b[i] = 'A'
			}
			tampered[name] = string(b)

			if err := openJar(c, tampered, key, 42, "alex"); err == nil {
				t.Fatalf("tampering %s at %d was accepted", name, i)
			}
		}
	}
}

func TestCodecIntegrityCheckedBeforeDecrypt(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	jar := issueJar(t, c, 42, "alex", key)
	jar[c.Names().User] = "not-even-base64!!"

	_, _, err := c.OpenUser(jar)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestCodecMissingCookies(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	n := c.Names()

	for _, drop := range []string{n.User, n.VerifyUser, n.VerifyHash} {
		jar := issueJar(t, c, 42, "alex", key)
		delete(jar, drop)
		if _, _, err := c.OpenUser(jar); !errors.Is(err, ErrMissingCookie) {
			t.Fatalf("dropping %s: expected ErrMissingCookie, got %v", drop, err)
		}
	}

	jar := issueJar(t, c, 42, "alex", key)
	delete(jar, c.HashCookieName(key, "alex"))
	_, suffix, err := c.OpenUser(jar)
	if err != nil {
		t.Fatalf("OpenUser failed: %v", err)
	}
	if _, err := c.OpenHash(jar, suffix, key, 42, "alex"); !errors.Is(err, ErrMissingCookie) {
		t.Fatalf("expected ErrMissingCookie for hash cookie, got %v", err)
	}
}

func TestCodecRotatedSessionKeyFails(t *testing.T) {
	c := newTestCodec(t)
	oldKey := newTestKey(t)
	jar := issueJar(t, c, 42, "alex", oldKey)

	newKey := newTestKey(t)
	if err := openJar(c, jar, newKey, 42, "alex"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch after rotation, got %v", err)
	}
}

func TestCodecRecordMismatch(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	jar := issueJar(t, c, 42, "alex", key)

	_, suffix, err := c.OpenUser(jar)
	if err != nil {
		t.Fatalf("OpenUser failed: %v", err)
	}
	if _, err := c.OpenHash(jar, suffix, key, 43, "alex"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for other user id, got %v", err)
	}
	if _, err := c.OpenHash(jar, suffix, key, 42, "alexa"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch for other username, got %v", err)
	}
}

func TestCodecDifferentSystemKeyRejected(t *testing.T) {
	c := newTestCodec(t)
	key := newTestKey(t)
	jar := issueJar(t, c, 42, "alex", key)

	other, err := NewCodec(bytes.Repeat([]byte{9}, KeySize), Names{})
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	if _, _, err := other.OpenUser(jar); !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected ErrIntegrity, got %v", err)
	}
}

func TestNewCodecRejectsShortKey(t *testing.T) {
	if _, err := NewCodec([]byte("short"), Names{}); !errors.Is(err, ErrKeyTooShort) {
		t.Fatalf("expected ErrKeyTooShort, got %v", err)
	}
}

func TestHashCookieNameDependsOnSessionKey(t *testing.T) {
	c := newTestCodec(t)
	a := c.HashCookieName(newTestKey(t), "alex")
	b := c.HashCookieName(newTestKey(t), "alex")
	if a == b {
		t.Fatal("expected different hash cookie names for different session keys")
	}
	if !c.IsHashCookie(a) {
		t.Fatalf("expected %q to carry the hash prefix", a)
	}
}

func TestSealerRotation(t *testing.T) {
	key := newTestKey(t)
	s, err := NewSealer(key, "recovery")
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	sealed, err := s.Seal([]byte("payload"))
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}

	plain, err := s.Open(sealed)
	if err != nil || string(plain) != "payload" {
		t.Fatalf("Open failed: %q %v", plain, err)
	}

	rotated, err := NewSealer(newTestKey(t), "recovery")
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	if _, err := rotated.Open(sealed); !errors.Is(err, ErrDecrypt) {
		t.Fatalf("expected ErrDecrypt, got %v", err)
	}
}
