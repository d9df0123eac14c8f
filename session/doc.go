// Package session implements the stateless cookie protocol that identifies a
// logged-in user without server-side session storage.
//
// # Cookie set
//
// A login issues five cookies that share one expiry:
//
//   - USER: sealed under the system key, carries "userID:hashCookieName".
//   - HASH_<name>: sealed under the user's session key, carries
//     "timestamp:userID:username". The name suffix is a keyed hash, so it
//     cannot be predicted without the session key.
//   - VERIFY_A: keyed hash (system key) of the raw USER value.
//   - VERIFY_B: keyed hash (session key) of the raw HASH value.
//   - TIMESTAMP: expiry echo, readable by scripts.
//
// Integrity cookies are checked in constant time before anything is
// decrypted. Rotating a user's session key changes both the expected HASH
// cookie name and its decryption key, which invalidates every cookie set
// issued before the rotation.
//
// # Primitives
//
// Sealing uses XChaCha20-Poly1305. Keyed hashes use BLAKE2b-256. Independent
// encryption and MAC sub-keys are derived from each master key with HKDF.
//
// # Architecture boundaries
//
// This package owns cookie values and names. It does NOT read or write HTTP
// headers, look up authentication records, or decide what a failed check
// means for the caller.
package session
