package session

import (
	"crypto/subtle"
	"strconv"
	"strings"
	"time"
)

const hashSuffixLen = 22

// Names holds the literal cookie names used on the wire.
type Names struct {
	User       string `yaml:"user"`
	HashPrefix string `yaml:"hash_prefix"`
	VerifyUser string `yaml:"verify_user"`
	VerifyHash string `yaml:"verify_hash"`
	Timestamp  string `yaml:"timestamp"`
}

// DefaultNames returns the cookie names used when none are configured.
func DefaultNames() Names {
	return Names{
		User:       "gg_user",
		HashPrefix: "gg_hash_",
		VerifyUser: "gg_vu",
		VerifyHash: "gg_vh",
		Timestamp:  "gg_ts",
	}
}

func (n Names) withDefaults() Names {
	d := DefaultNames()
	if n.User == "" {
		n.User = d.User
	}
	if n.HashPrefix == "" {
		n.HashPrefix = d.HashPrefix
	}
	if n.VerifyUser == "" {
		n.VerifyUser = d.VerifyUser
	}
	if n.VerifyHash == "" {
		n.VerifyHash = d.VerifyHash
	}
	if n.Timestamp == "" {
		n.Timestamp = d.Timestamp
	}
	return n
}

// CookieSource exposes the cookies of the current request.
type CookieSource interface {
	Cookie(name string) (string, bool)
}

// Values is one issued cookie set, keyed by role rather than wire name.
type Values struct {
	User       string
	HashName   string
	Hash       string
	VerifyUser string
	VerifyHash string
}

// Codec issues and validates cookie sets. A Codec is safe for concurrent use.
type Codec struct {
	names  Names
	system keyPair
}

// NewCodec builds a Codec around the server-wide system key. Empty names
// fall back to DefaultNames.
func NewCodec(systemKey []byte, names Names) (*Codec, error) {
	keys, err := deriveKeys(systemKey, "system")
	if err != nil {
		return nil, err
	}
	return &Codec{names: names.withDefaults(), system: keys}, nil
}

// Names returns the effective cookie names.
func (c *Codec) Names() Names {
	return c.names
}

// IsHashCookie reports whether name carries the hash cookie prefix.
func (c *Codec) IsHashCookie(name string) bool {
	return strings.HasPrefix(name, c.names.HashPrefix)
}

// HashCookieName returns the full name of the hash cookie for a session key
// and username.
func (c *Codec) HashCookieName(sessionKey []byte, username string) string {
	return c.names.HashPrefix + c.hashSuffix(sessionKey, username)
}

func (c *Codec) hashSuffix(sessionKey []byte, username string) string {
	return sum(c.system.mac, sessionKey, []byte{0}, []byte(username))[:hashSuffixLen]
}

// Stamp is the issue metadata sealed inside the hash cookie.
type Stamp struct {
	Issued      time.Time
	SessionOnly bool
}

// Issue produces a fresh cookie set for the user. sessionOnly marks sets
// issued without an expiry; the flag is sealed with the hash cookie so the
// client cannot change it.
func (c *Codec) Issue(userID int64, username string, sessionKey []byte, now time.Time, sessionOnly bool) (Values, error) {
	sk, err := deriveKeys(sessionKey, "session")
	if err != nil {
		return Values{}, err
	}

	suffix := c.hashSuffix(sessionKey, username)
	hashName := c.names.HashPrefix + suffix

	id := strconv.FormatInt(userID, 10)
	user, err := seal(c.system.enc, []byte(id+":"+suffix), []byte(c.names.User))
	if err != nil {
		return Values{}, err
	}

	// Session-only sets carry the issue time negated.
	issued := now.Unix()
	if sessionOnly {
		issued = -issued
	}
	payload := strconv.FormatInt(issued, 10) + ":" + id + ":" + username
	hash, err := seal(sk.enc, []byte(payload), []byte(hashName))
	if err != nil {
		return Values{}, err
	}

	return Values{
		User:       user,
		HashName:   hashName,
		Hash:       hash,
		VerifyUser: sum(c.system.mac, []byte(user)),
		VerifyHash: sum(sk.mac, []byte(hash)),
	}, nil
}

// OpenUser validates and decrypts the USER cookie. It returns the user id
// and the hash cookie suffix it references. The USER value is never
// decrypted unless its verification cookie matches.
func (c *Codec) OpenUser(src CookieSource) (int64, string, error) {
	user, ok := src.Cookie(c.names.User)
	if !ok || user == "" {
		return 0, "", ErrMissingCookie
	}
	verifyUser, ok := src.Cookie(c.names.VerifyUser)
	if !ok {
		return 0, "", ErrMissingCookie
	}
	if _, ok := src.Cookie(c.names.VerifyHash); !ok {
		return 0, "", ErrMissingCookie
	}

	if !verify(c.system.mac, user, verifyUser) {
		return 0, "", ErrIntegrity
	}

	plain, err := open(c.system.enc, user, []byte(c.names.User))
	if err != nil {
		return 0, "", err
	}

	parts := strings.Split(string(plain), ":")
	if len(parts) != 2 || parts[1] == "" {
		return 0, "", ErrMalformed
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", ErrMalformed
	}

	return userID, parts[1], nil
}

// OpenHash validates the hash cookie against the record it should belong
// to and returns the stamp it carries.
func (c *Codec) OpenHash(src CookieSource, suffix string, sessionKey []byte, userID int64, username string) (Stamp, error) {
	sk, err := deriveKeys(sessionKey, "session")
	if err != nil {
		return Stamp{}, err
	}

	expected := c.hashSuffix(sessionKey, username)
	if subtle.ConstantTimeCompare([]byte(expected), []byte(suffix)) != 1 {
		return Stamp{}, ErrMismatch
	}

	name := c.names.HashPrefix + expected
	hash, ok := src.Cookie(name)
	if !ok || hash == "" {
		return Stamp{}, ErrMissingCookie
	}
	verifyHash, ok := src.Cookie(c.names.VerifyHash)
	if !ok {
		return Stamp{}, ErrMissingCookie
	}

	if !verify(sk.mac, hash, verifyHash) {
		return Stamp{}, ErrIntegrity
	}

	plain, err := open(sk.enc, hash, []byte(name))
	if err != nil {
		return Stamp{}, err
	}

	// The username is the last field and may itself contain colons.
	fields := strings.SplitN(string(plain), ":", 3)
	if len(fields) != 3 {
		return Stamp{}, ErrMalformed
	}
	issued, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil || issued == 0 {
		return Stamp{}, ErrMalformed
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return Stamp{}, ErrMalformed
	}
	if id != userID || fields[2] != username {
		return Stamp{}, ErrMismatch
	}

	if issued < 0 {
		return Stamp{Issued: time.Unix(-issued, 0), SessionOnly: true}, nil
	}
	return Stamp{Issued: time.Unix(issued, 0)}, nil
}
