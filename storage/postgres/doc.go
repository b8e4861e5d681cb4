// Package postgres implements schedauth.AccountRepository and
// schedauth.PlatformRepository on PostgreSQL through pgx. Migrate creates
// the schema; it is idempotent and safe to run on every start.
package postgres
