package goGate

import (
	"context"
	"time"
)

// User is the application's account entity as the engine sees it. The
// record accessors carry the back-reference to its AuthenticationRecord;
// the engine fills it in when it loads or creates one.
type User interface {
	GetID() int64
	GetEmail() string
	AuthenticationRecord() *AuthenticationRecord
	SetAuthenticationRecord(*AuthenticationRecord)
}

// AuthenticationRecord is the persisted credential row of one user. The
// session key is raw key material; JSON encodes it as base64.
type AuthenticationRecord struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash"`
	SessionKey   []byte `json:"session_key"`
}

// Clone returns a deep copy of r.
func (r *AuthenticationRecord) Clone() *AuthenticationRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.SessionKey = append([]byte(nil), r.SessionKey...)
	return &out
}

// TokenStatus is the lifecycle state of a ResetToken.
type TokenStatus string

const (
	// TokenUnused marks a token that can still be redeemed.
	TokenUnused TokenStatus = "UNUSED"
	// TokenUsed marks a token that changed a password.
	TokenUsed TokenStatus = "USED"
	// TokenInvalid marks a token superseded by a newer request.
	TokenInvalid TokenStatus = "INVALID"
)

// ResetToken is one password-recovery request. Token is the sealed payload
// handed to the user; the remaining fields are server-side bookkeeping.
type ResetToken struct {
	ID          string      `json:"id"`
	UserID      int64       `json:"user_id"`
	Token       string      `json:"token"`
	RequestTime time.Time   `json:"request_time"`
	RequestIP   string      `json:"request_ip"`
	Status      TokenStatus `json:"status"`
}

// AuthenticationProvider persists authentication records. Lookups return
// ErrRecordNotFound when nothing matches.
type AuthenticationProvider interface {
	FindByUsername(ctx context.Context, username string) (*AuthenticationRecord, error)
	FindByUserID(ctx context.Context, userID int64) (*AuthenticationRecord, error)
	Create(ctx context.Context, record *AuthenticationRecord) error
	Save(ctx context.Context, record *AuthenticationRecord) error
}

// UserProvider resolves application users. Lookups return ErrUserNotFound
// when nothing matches.
type UserProvider interface {
	FindByID(ctx context.Context, id int64) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
}

// ResetTokenProvider persists recovery tokens. Get returns ErrTokenNotFound
// when the id is unknown.
type ResetTokenProvider interface {
	Save(ctx context.Context, token *ResetToken) error
	Update(ctx context.Context, token *ResetToken) error
	CountRequests(ctx context.Context, userID int64, since time.Time) (int, error)
	Get(ctx context.Context, id string) (*ResetToken, error)
	InvalidateUnused(ctx context.Context, userID int64) error
}
