// Package session keeps the server-side half of token sessions in Redis: the
// refresh-token allow-list with its per-account index, and the access-token
// blacklist.
//
// Multi-key updates run as Lua scripts so rotation and revocation are atomic
// with respect to each other. The package never parses tokens; callers pass
// ids and expiry times.
package session
