package goGate

import "errors"

var (
	// ErrBadPassword is returned by Authenticate when the password does not match.
	ErrBadPassword = errors.New("bad password")
	// ErrNoSuchUser is returned when no authentication record resolves for a username or user.
	ErrNoSuchUser = errors.New("no such user")
	// ErrUserRequired is returned when a user without a persisted id is passed in.
	ErrUserRequired = errors.New("user with a persisted id required")
	// ErrRecordExists is returned when the user already has an authentication record.
	ErrRecordExists = errors.New("authentication record already exists")
	// ErrUsernameTaken is returned when another record already owns the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrEmailUsernameMismatch is returned when an email-shaped username differs from the user's email.
	ErrEmailUsernameMismatch = errors.New("email username must match the user's email")
	// ErrEmailTaken is returned when another user already owns the email used as username.
	ErrEmailTaken = errors.New("email already belongs to another user")
	// ErrWeakPassword is returned when the password strength checker rejects a password.
	ErrWeakPassword = errors.New("password too weak")
	// ErrNoAuthenticationRecord is returned when a user has no authentication record.
	ErrNoAuthenticationRecord = errors.New("no authentication record")

	// ErrPasswordResetProhibited is returned when recovery is used without a reset token provider.
	ErrPasswordResetProhibited = errors.New("password reset prohibited")
	// ErrTooManyRecoveryAttempts is returned when recovery requests exceed the configured window.
	ErrTooManyRecoveryAttempts = errors.New("too many recovery attempts")
	// ErrInvalidResetToken is returned when a reset token cannot be opened or fails a literal check.
	ErrInvalidResetToken = errors.New("invalid reset token")
	// ErrMismatchedResetToken is returned when a reset token is presented for a different account.
	ErrMismatchedResetToken = errors.New("reset token belongs to another account")
	// ErrResetTokenUsed is returned when a reset token is no longer unused.
	ErrResetTokenUsed = errors.New("reset token already used or invalidated")
	// ErrResetTokenFingerprint is returned when the browser fingerprint differs from issuance.
	ErrResetTokenFingerprint = errors.New("reset token fingerprint mismatch")
	// ErrResetTokenIP is returned when the requesting IP differs from issuance.
	ErrResetTokenIP = errors.New("reset token ip mismatch")
	// ErrResetTokenUser is returned when the token payload names a different user.
	ErrResetTokenUser = errors.New("reset token user mismatch")
	// ErrResetTokenExpired is returned when the token is older than the configured max age.
	ErrResetTokenExpired = errors.New("reset token expired")

	// ErrRecordNotFound is returned by an AuthenticationProvider lookup that finds nothing.
	ErrRecordNotFound = errors.New("authentication record not found")
	// ErrUserNotFound is returned by a UserProvider lookup that finds nothing.
	ErrUserNotFound = errors.New("user not found")
	// ErrTokenNotFound is returned by a ResetTokenProvider lookup that finds nothing.
	ErrTokenNotFound = errors.New("reset token not found")

	// ErrEngineNotReady is returned by engine methods called on a nil or unbuilt engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
