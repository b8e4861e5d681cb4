// Package provider talks to third-party OAuth authorization servers: it
// builds the consent URL, exchanges the callback code for tokens and
// fetches the provider's user profile.
package provider
