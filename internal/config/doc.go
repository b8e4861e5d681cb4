// Package config reads the schedauthd process configuration from the
// environment (optionally seeded from a .env file) and turns it into the
// explicit structs the Engine and its collaborators take.
package config
