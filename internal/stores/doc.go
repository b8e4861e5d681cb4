// Package stores provides Redis-backed, short-lived records for the OTP
// challenge and OAuth linkage flows.
//
// Records are single-use. OTP issuance claims its send-rate flag with SET NX
// inside one script, and consumption is a compare-and-delete script run
// after a constant-time compare. OAuth state is read and removed with one
// GETDEL.
//
// This package does not generate codes or decide what a failed attempt
// costs; the Engine and internal/limiters do.
package stores
