// Package internal contains helpers private to schedauth: secure random
// codes, constant-time comparison and the shared Redis key layout.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - flows: login, refresh and logout orchestration behind the Engine
//   - limiters: login lockout and OTP attempt limiters
//   - metrics: lock-free counters and latency histograms
//   - provider: OAuth authorization-code exchange client
//   - rate: the windowed failure counter both limiters are built on
//   - security: read-only posture report assembly
//   - stores: OTP and OAuth state records
package internal
