// Package middleware adapts Engine access-token validation and client
// metadata capture to net/http handler chains.
//
// RequireAccess reads the Authorization header, calls
// Engine.ValidateAccess and stores the claims in the request context.
// It never parses tokens itself.
package middleware
