// Package httpapi mounts the schedauth Engine on an echo server: account
// registration and login, refresh-token rotation through an HttpOnly
// cookie, OTP challenges, platform linking via provider OAuth, metrics
// and health probes.
package httpapi
