package session

import "errors"

var (
	// ErrMissingCookie is returned when a cookie required by the protocol is absent.
	ErrMissingCookie = errors.New("session: missing cookie")
	// ErrIntegrity is returned when a verification cookie does not match its keyed hash.
	ErrIntegrity = errors.New("session: integrity check failed")
	// ErrMalformed is returned when a decrypted payload does not have the expected shape.
	ErrMalformed = errors.New("session: malformed payload")
	// ErrMismatch is returned when a hash cookie names a different user than the record.
	ErrMismatch = errors.New("session: identity mismatch")
	// ErrDecrypt is returned when a sealed value cannot be opened with the given key.
	ErrDecrypt = errors.New("session: decryption failed")
	// ErrKeyTooShort is returned when a master key is shorter than KeySize.
	ErrKeyTooShort = errors.New("session: key too short")
)
