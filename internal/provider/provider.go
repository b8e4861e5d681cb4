package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

var (
	// ErrNotConfigured means the provider lacks a client id, redirect URI
	// or endpoint.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrExchange covers every failed token exchange, including a response
	// without an access token.
	ErrExchange = errors.New("provider token exchange failed")
	ErrProfile  = errors.New("provider profile request failed")
)

// Config describes one provider. Scopes are joined with commas, the form
// Meta's Graph API expects.
type Config struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

func (c Config) configured() bool {
	return c.ClientID != "" && c.RedirectURI != "" && c.AuthURL != "" && c.TokenURL != ""
}

// oauth2 joins scopes with spaces, so they are left out here and sent as a
// single comma-joined auth URL parameter instead.
func (c Config) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Token is the result of a code exchange. ExpiresAt is nil when the
// provider did not say.
type Token struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    *time.Time
}

// Profile is the subset of the user-info response the linkage needs. Raw
// keeps the whole document for storage as link metadata.
type Profile struct {
	ID  string
	Raw map[string]any
}

type Client struct {
	config Config
	oauth  *oauth2.Config
	http   *http.Client
	now    func() time.Time
}

// New returns a client for cfg. A nil httpClient means a client with a 30
// second timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{config: cfg, oauth: cfg.oauthConfig(), http: httpClient, now: time.Now}
}

func (c *Client) Name() string { return c.config.Name }

// withHTTPClient hands the client's http.Client to the oauth2 package.
func (c *Client) withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

// AuthURL is where the user is sent to grant access; state comes back on
// the callback.
func (c *Client) AuthURL(state string) (string, error) {
	if !c.config.configured() {
		return "", ErrNotConfigured
	}
	if _, err := url.Parse(c.config.AuthURL); err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotConfigured, err)
	}
	var opts []oauth2.AuthCodeOption
	if len(c.config.Scopes) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(c.config.Scopes, ",")))
	}
	return c.oauth.AuthCodeURL(state, opts...), nil
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (Token, error) {
	if !c.config.configured() {
		return Token{}, ErrNotConfigured
	}
	tok, err := c.oauth.Exchange(c.withHTTPClient(ctx), code)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrExchange, err)
	}
	if tok.AccessToken == "" {
		return Token{}, fmt.Errorf("%w: no access token returned", ErrExchange)
	}

	out := Token{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}
	if scope, ok := tok.Extra("scope").(string); ok {
		out.Scope = scope
	}
	if secs := expiresIn(tok.Extra("expires_in")); secs > 0 {
		at := c.now().UTC().Add(time.Duration(secs) * time.Second)
		out.ExpiresAt = &at
	} else if !tok.Expiry.IsZero() {
		at := tok.Expiry.UTC()
		out.ExpiresAt = &at
	}
	return out, nil
}

func expiresIn(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case json.Number:
		secs, _ := n.Int64()
		return secs
	case string:
		secs, _ := strconv.ParseInt(n, 10, 64)
		return secs
	}
	return 0
}

// UserInfo fetches the profile behind accessToken. Providers without a
// user-info endpoint yield an empty Profile and no error. Graph endpoints
// read the token from the query, so it is sent there as well as in the
// Authorization header.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (Profile, error) {
	if c.config.UserInfoURL == "" {
		return Profile{}, nil
	}
	u, err := url.Parse(c.config.UserInfoURL)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	q := u.Query()
	q.Set("access_token", accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	req.Header.Set("Accept", "application/json")

	client := c.oauth.Client(c.withHTTPClient(ctx), &oauth2.Token{AccessToken: accessToken})
	client.Timeout = c.http.Timeout
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%w: status %d", ErrProfile, resp.StatusCode)
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, 1<<20))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrProfile, err)
	}
	p := Profile{Raw: raw}
	switch id := raw["id"].(type) {
	case string:
		p.ID = id
	case json.Number:
		p.ID = id.String()
	}
	return p, nil
}

// Registry maps lower-case provider names to clients.
type Registry map[string]*Client

func NewRegistry(configs ...Config) Registry {
	r := Registry{}
	for _, cfg := range configs {
		if !cfg.configured() {
			continue
		}
		r[strings.ToLower(cfg.Name)] = New(cfg, nil)
	}
	return r
}

func (r Registry) Get(name string) (*Client, bool) {
	c, ok := r[strings.ToLower(name)]
	return c, ok
}
