// Package limiters provides the two failure limiters used by the Engine, both
// built on the [rate.Window] primitive:
//
//   - [LockoutLimiter]: failed logins per account (la:attempts:, la:lock:).
//   - [OTPLimiter]: wrong OTP submissions per action and account
//     (otp:attempts:{action}:, otp:lock:{action}:).
//
// Limiters count and lock. What a lock means for a request is decided by the
// Engine.
package limiters
