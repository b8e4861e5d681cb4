package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/MrEthical07/schedauth"
)

// AccessValidator is satisfied by *schedauth.Engine.
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (*schedauth.Claims, error)
}

type claimsContextKey struct{}

func ClaimsFromContext(ctx context.Context) (*schedauth.Claims, bool) {
	c, ok := ctx.Value(claimsContextKey{}).(*schedauth.Claims)
	return c, ok
}

// RequireAccess rejects requests without a valid access token with 401,
// or 503 when revocation state cannot be checked.
func RequireAccess(v AccessValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v == nil {
				unauthorized(w)
				return
			}
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w)
				return
			}
			claims, err := v.ValidateAccess(r.Context(), token)
			if err != nil {
				if errors.Is(err, schedauth.ErrUnavailable) {
					http.Error(w, "service unavailable", http.StatusServiceUnavailable)
					return
				}
				unauthorized(w)
				return
			}
			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="schedauth"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func BearerToken(value string) (string, bool) {
	const bearer = "bearer "
	if len(value) <= len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}
	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}
	return token, true
}

// ClientInfo records the caller's address and user agent so audit events
// emitted while serving the request carry them. X-Forwarded-For is only
// honoured when trustProxy is set.
func ClientInfo(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := schedauth.WithClientIP(r.Context(), clientIP(r, trustProxy))
			if ua := r.UserAgent(); ua != "" {
				ctx = schedauth.WithUserAgent(ctx, ua)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
