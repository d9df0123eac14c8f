package goGate

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MrEthical07/goGate/session"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	recoveryPurpose     = "recovery"
	fingerprintSentinel = "-"
)

var fingerprintHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Charset",
	"Accept-Encoding",
	"Accept-Language",
}

// Fingerprint concatenates the browser headers that bind a recovery token
// to the client that requested it. Absent headers contribute "-".
func Fingerprint(h http.Header) string {
	parts := make([]string, len(fingerprintHeaders))
	for i, name := range fingerprintHeaders {
		v := h.Get(name)
		if v == "" {
			v = fingerprintSentinel
		}
		parts[i] = v
	}
	return strings.Join(parts, "|")
}

// recoveryClaims is the token payload. It is signed with a key derived
// from the record's session key and then sealed under the same session
// key, so both steps stop working after any rotation.
type recoveryClaims struct {
	Fingerprint string `json:"fpr"`
	jwt.RegisteredClaims
}

func (e *Engine) newResetToken(rec *AuthenticationRecord, req *Request) (*ResetToken, error) {
	sealer, err := session.NewSealer(rec.SessionKey, recoveryPurpose)
	if err != nil {
		return nil, err
	}

	now := e.now()
	id := uuid.NewString()
	claims := recoveryClaims{
		Fingerprint: Fingerprint(req.Header),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       id,
			Subject:  strconv.FormatInt(rec.UserID, 10),
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if e.config.Recovery.MaxAge > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(e.config.Recovery.MaxAge))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sealer.SigningKey())
	if err != nil {
		return nil, err
	}
	sealed, err := sealer.Seal([]byte(signed))
	if err != nil {
		return nil, err
	}

	return &ResetToken{
		ID:          id,
		UserID:      rec.UserID,
		Token:       sealed,
		RequestTime: now.UTC(),
		RequestIP:   req.ClientIP,
		Status:      TokenUnused,
	}, nil
}

// validateResetToken runs every check a presented token must pass. Each
// failed check has its own error; open and parse failures collapse into
// ErrInvalidResetToken.
func (e *Engine) validateResetToken(tok *ResetToken, rec *AuthenticationRecord, supplied string, req *Request) error {
	if subtle.ConstantTimeCompare([]byte(tok.Token), []byte(supplied)) != 1 {
		return ErrInvalidResetToken
	}
	if tok.Status != TokenUnused {
		return ErrResetTokenUsed
	}
	if tok.UserID != rec.UserID {
		return ErrMismatchedResetToken
	}

	sealer, err := session.NewSealer(rec.SessionKey, recoveryPurpose)
	if err != nil {
		return ErrInvalidResetToken
	}
	plain, err := sealer.Open(tok.Token)
	if err != nil {
		return ErrInvalidResetToken
	}

	var claims recoveryClaims
	_, err = jwt.ParseWithClaims(string(plain), &claims,
		func(*jwt.Token) (any, error) { return sealer.SigningKey(), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(e.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrResetTokenExpired
		}
		return ErrInvalidResetToken
	}
	if claims.Fingerprint == "" || claims.IssuedAt == nil || claims.Subject == "" || claims.ID != tok.ID {
		return ErrInvalidResetToken
	}

	if e.config.Recovery.CheckFingerprint && claims.Fingerprint != Fingerprint(req.Header) {
		return ErrResetTokenFingerprint
	}
	if e.config.Recovery.CheckIP && tok.RequestIP != req.ClientIP {
		return ErrResetTokenIP
	}
	if claims.Subject != strconv.FormatInt(rec.UserID, 10) {
		return ErrResetTokenUser
	}
	return nil
}
