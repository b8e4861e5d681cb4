package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/schedauth"
)

// Accounts implements schedauth.AccountRepository and
// schedauth.PasswordHashUpdater. Emails and usernames are unique
// case-insensitively.
type Accounts struct {
	mu         sync.RWMutex
	byID       map[string]schedauth.Account
	byEmail    map[string]string
	byUsername map[string]string
}

func NewAccounts() *Accounts {
	return &Accounts{
		byID:       make(map[string]schedauth.Account),
		byEmail:    make(map[string]string),
		byUsername: make(map[string]string),
	}
}

func fold(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

func (a *Accounts) FindByEmail(_ context.Context, email string) (*schedauth.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lookup(a.byEmail[fold(email)]), nil
}

func (a *Accounts) FindByUsername(_ context.Context, username string) (*schedauth.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lookup(a.byUsername[fold(username)]), nil
}

func (a *Accounts) FindByID(_ context.Context, id string) (*schedauth.Account, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lookup(id), nil
}

// lookup returns a copy so callers cannot mutate stored state.
func (a *Accounts) lookup(id string) *schedauth.Account {
	acct, ok := a.byID[id]
	if !ok {
		return nil
	}
	if acct.LastLoginAt != nil {
		t := *acct.LastLoginAt
		acct.LastLoginAt = &t
	}
	return &acct
}

func (a *Accounts) Create(_ context.Context, account *schedauth.Account) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	email, username := fold(account.Email), fold(account.Username)
	if _, ok := a.byID[account.ID]; ok {
		return schedauth.ErrDuplicate
	}
	if _, ok := a.byEmail[email]; ok {
		return schedauth.ErrDuplicate
	}
	if _, ok := a.byUsername[username]; ok {
		return schedauth.ErrDuplicate
	}
	a.byID[account.ID] = *account
	a.byEmail[email] = account.ID
	a.byUsername[username] = account.ID
	return nil
}

// UpdateLastLogin is a no-op for unknown ids.
func (a *Accounts) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acct, ok := a.byID[id]; ok {
		acct.LastLoginAt = &at
		a.byID[id] = acct
	}
	return nil
}

func (a *Accounts) UpdatePasswordHash(_ context.Context, id, digest string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acct, ok := a.byID[id]; ok {
		acct.PasswordHash = digest
		a.byID[id] = acct
	}
	return nil
}

// SetActive enables or disables an account. It reports whether the
// account exists.
func (a *Accounts) SetActive(id string, active bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	acct, ok := a.byID[id]
	if ok {
		acct.Active = active
		a.byID[id] = acct
	}
	return ok
}
