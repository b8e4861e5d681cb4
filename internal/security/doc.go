// Package security summarises an Engine's effective security settings for
// operators. It reads configuration only and never touches the store.
package security
