package schedauth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testPassword = "Abcd1234"

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Environment = "test"
	cfg.Password.BcryptCost = 10
	return cfg
}

type testEnv struct {
	engine    *Engine
	mr        *miniredis.Miniredis
	rdb       *redis.Client
	accounts  *fakeAccounts
	platforms *fakePlatforms
	mailer    *fakeMailer
	events    *ChannelSink
}

type envOption func(*Builder)

func newTestEnv(t *testing.T, cfg Config, opts ...envOption) *testEnv {
	t.Helper()
	mr, rdb := newTestRedis(t)
	env := &testEnv{
		mr:        mr,
		rdb:       rdb,
		accounts:  newFakeAccounts(),
		platforms: newFakePlatforms(),
		mailer:    &fakeMailer{},
		events:    NewChannelSink(256),
	}
	b := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithAccountRepository(env.accounts).
		WithPlatformRepository(env.platforms).
		WithEmailSender(env.mailer).
		WithAuditSink(env.events).
		WithLogger(zaptest.NewLogger(t))
	for _, opt := range opts {
		opt(b)
	}
	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	env.engine = engine
	return env
}

// drainEvents closes the dispatcher and returns every event it delivered.
func (env *testEnv) drainEvents() []AuditEvent {
	env.engine.audit.Close()
	var out []AuditEvent
	for {
		select {
		case ev := <-env.events.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventTypes(events []AuditEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeAccounts struct {
	mu       sync.Mutex
	byID     map[string]*Account
	failWith error
	rehashed map[string]string
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{byID: map[string]*Account{}, rehashed: map[string]string{}}
}

func (r *fakeAccounts) find(match func(*Account) bool) (*Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	for _, a := range r.byID {
		if match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeAccounts) FindByEmail(_ context.Context, email string) (*Account, error) {
	return r.find(func(a *Account) bool { return strings.EqualFold(a.Email, email) })
}

func (r *fakeAccounts) FindByUsername(_ context.Context, username string) (*Account, error) {
	return r.find(func(a *Account) bool { return a.Username == username })
}

func (r *fakeAccounts) FindByID(_ context.Context, id string) (*Account, error) {
	return r.find(func(a *Account) bool { return a.ID == id })
}

func (r *fakeAccounts) Create(_ context.Context, a *Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return r.failWith
	}
	for _, existing := range r.byID {
		if strings.EqualFold(existing.Email, a.Email) || existing.Username == a.Username {
			return ErrDuplicate
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeAccounts) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return errors.New("no such account")
	}
	a.LastLoginAt = &at
	return nil
}

func (r *fakeAccounts) UpdatePasswordHash(_ context.Context, id, digest string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return errors.New("no such account")
	}
	a.PasswordHash = digest
	r.rehashed[id] = digest
	return nil
}

func (r *fakeAccounts) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

func (r *fakeAccounts) setActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[id].Active = active
}

type fakePlatforms struct {
	mu   sync.Mutex
	byID map[string]*ConnectedPlatform
}

func newFakePlatforms() *fakePlatforms {
	return &fakePlatforms{byID: map[string]*ConnectedPlatform{}}
}

func (r *fakePlatforms) Create(_ context.Context, p *ConnectedPlatform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.byID[p.ID] = &cp
	return nil
}

func (r *fakePlatforms) first(match func(*ConnectedPlatform) bool) *ConnectedPlatform {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byID {
		if match(p) {
			cp := *p
			return &cp
		}
	}
	return nil
}

func (r *fakePlatforms) FindByID(_ context.Context, id string) (*ConnectedPlatform, error) {
	return r.first(func(p *ConnectedPlatform) bool { return p.ID == id }), nil
}

func (r *fakePlatforms) FindByAccountAndProvider(_ context.Context, accountID, provider string) (*ConnectedPlatform, error) {
	return r.first(func(p *ConnectedPlatform) bool { return p.AccountID == accountID && p.Provider == provider }), nil
}

func (r *fakePlatforms) FindByProviderAndProviderUserID(_ context.Context, provider, providerUserID string) (*ConnectedPlatform, error) {
	return r.first(func(p *ConnectedPlatform) bool {
		return p.Provider == provider && p.ProviderUserID == providerUserID
	}), nil
}

func (r *fakePlatforms) ListByAccount(_ context.Context, accountID string) ([]ConnectedPlatform, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ConnectedPlatform
	for _, p := range r.byID {
		if p.AccountID == accountID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePlatforms) UpdateTokens(_ context.Context, id, accessEnc, refreshEnc string, expiresAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return errors.New("no such platform")
	}
	p.AccessTokenEnc, p.RefreshTokenEnc, p.TokenExpiresAt = accessEnc, refreshEnc, expiresAt
	return nil
}

func (r *fakePlatforms) UpdateProviderUserID(_ context.Context, id, providerUserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return errors.New("no such platform")
	}
	p.ProviderUserID = providerUserID
	return nil
}

func (r *fakePlatforms) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, id)
	return nil
}

func (r *fakePlatforms) corrupt(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.byID[id]
	first := "A"
	if p.AccessTokenEnc[0] == 'A' {
		first = "B"
	}
	p.AccessTokenEnc = first + p.AccessTokenEnc[1:]
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg EmailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) last() EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}
