// Package password hashes passwords with Argon2id and judges their strength.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Parameters travel with every hash, so [Argon2.Verify] accepts hashes made
// under older settings. [Argon2.NeedsUpgrade] reports when a stored hash was
// produced with weaker parameters than the current [Config].
//
// # Strength
//
// A [Checker] decides whether a new password is acceptable. [NoopChecker]
// accepts everything, [ScoreChecker] rates estimated entropy on a 0..4 scale
// and [PolicyChecker] applies character-class rules. Minimum length is
// enforced by [Argon2.Hash] regardless of the checker.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other goGate package.
//   - Log plaintext passwords.
package password
