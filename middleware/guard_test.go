package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/schedauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validatorFunc func(ctx context.Context, token string) (*schedauth.Claims, error)

func (f validatorFunc) ValidateAccess(ctx context.Context, token string) (*schedauth.Claims, error) {
	return f(ctx, token)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		header string
		token  string
		ok     bool
	}{
		"valid":        {"Bearer abc", "abc", true},
		"lower scheme": {"bearer abc", "abc", true},
		"empty":        {"", "", false},
		"no token":     {"Bearer ", "", false},
		"spaces":       {"Bearer    ", "", false},
		"basic":        {"Basic dXNlcg==", "", false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			token, ok := BearerToken(tc.header)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.token, token)
		})
	}
}

func TestRequireAccess(t *testing.T) {
	v := validatorFunc(func(_ context.Context, token string) (*schedauth.Claims, error) {
		switch token {
		case "good":
			c := &schedauth.Claims{}
			c.Subject = "a1"
			return c, nil
		case "down":
			return nil, fmt.Errorf("%w: redis", schedauth.ErrUnavailable)
		default:
			return nil, schedauth.ErrTokenInvalid
		}
	})

	var seen string
	h := RequireAccess(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		require.True(t, ok)
		seen = c.Subject
		w.WriteHeader(http.StatusNoContent)
	}))

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	rec := do("Bearer good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "a1", seen)

	rec = do("")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	assert.Equal(t, http.StatusUnauthorized, do("Bearer forged").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do("Bearer down").Code)

	nilGuard := RequireAccess(nil)(http.NotFoundHandler())
	rec = httptest.NewRecorder()
	nilGuard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestClientInfo(t *testing.T) {
	var ip, ua string
	capture := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		ip = schedauth.ClientIPFromContext(r.Context())
		ua = schedauth.UserAgentFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:5123"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	req.Header.Set("User-Agent", "scheduler-web/1.0")

	ClientInfo(false)(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "10.0.0.7", ip)
	assert.Equal(t, "scheduler-web/1.0", ua)

	ClientInfo(true)(capture).ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "203.0.113.9", ip)
}
