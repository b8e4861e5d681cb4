// Package cipher provides reversible encryption for third-party OAuth tokens
// held at rest.
package cipher
