// Package schedauth is the credential and session authority of the
// scheduler: password login, access and refresh tokens with rotation,
// revocation, brute-force lockout, one-time passcodes and custody of
// third-party OAuth tokens.
//
// An [Engine] is assembled once by a [Builder] from an explicit [Config],
// a Redis client and the account and platform repositories, and is safe
// for concurrent use. The Engine keeps no per-session state in process;
// everything that must survive a request lives in Redis so that any number
// of instances can serve the same users.
//
// Refresh tokens are valid while their id is present in the allow-list and
// are exchanged at most once. Access tokens are valid until expiry unless
// their id has been blacklisted by a logout.
package schedauth
