// Package password hashes and verifies account passwords and enforces the
// registration password policy.
//
// New digests use bcrypt by default or Argon2id when configured. Argon2id
// digests are PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Hasher.Verify] dispatches on the digest prefix, so accounts hashed under a
// previous algorithm keep working, and [Hasher.NeedsUpgrade] tells the caller
// when to re-hash after a successful login.
//
// This package never stores passwords and never logs plaintext.
package password
