// Package rate provides the Redis-backed windowed failure counter shared by
// the login lockout and OTP attempt limiters.
//
// A [Window] counts failures per id inside a fixed window whose TTL is
// seeded on the first failure, and raises a lock flag with its own TTL once
// the threshold is reached. Increment, TTL seeding and locking run as a
// single Lua script.
//
// This package counts; it does not decide what a lock means. Callers in
// internal/limiters and the Engine do.
package rate
