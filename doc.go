// Package goGate provides cookie-based authentication without server-side
// session storage.
//
// An [Engine] is assembled once through [Builder] and shared across
// goroutines. Each inbound HTTP request gets its own [Request], which
// carries cookies, fingerprinting headers, the client IP and the identity
// resolved for that request.
//
// # Session protocol
//
// A login writes a cookie set produced by the session package: an
// encrypted user cookie under the server-wide system key, an encrypted
// hash cookie under the user's own session key, and keyed-hash integrity
// cookies for both. Identity resolution checks integrity before it
// decrypts anything and fails closed: [Engine.Identity] returns nil rather
// than an error. Every login, logout and password reset rotates the
// user's session key, which invalidates all outstanding cookie sets and
// recovery tokens at once.
//
// # Collaborators
//
// Persistence is supplied by the caller through [AuthenticationProvider],
// [UserProvider] and, to enable password recovery, [ResetTokenProvider].
// Redis implementations live in store/redisstore.
//
// Authorization (roles, guards, permissions) is the access package.
package goGate
