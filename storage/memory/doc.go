// Package memory provides map-backed AccountRepository and
// PlatformRepository implementations for tests and single-process
// development servers. Data does not survive a restart.
package memory
