// Package flows holds the decision logic of the Engine's request paths
// (authenticate, refresh, logout, access validation, OTP verification) as
// plain functions over dependency structs.
//
// Each Run function reports a failure kind instead of a public error; the
// Engine maps kinds to its sentinel errors, metrics and audit events. Flows
// own no resources and never import the root package.
package flows
