// Package jwt signs and verifies the access and refresh tokens handed to
// clients. Tokens carry sub, exp, jti, iat and a "type" claim naming their
// kind.
//
// Verification here is purely cryptographic plus expiry. Whether a token has
// been revoked is decided by the session package, never here.
package jwt
