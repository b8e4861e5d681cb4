package schedauth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/schedauth/password"
)

// Register creates an account. The password policy is checked before
// anything else; email and username must both be free. Nothing is
// written when Register fails.
func (e *Engine) Register(ctx context.Context, email, username, plain string) (*Account, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	email = strings.TrimSpace(email)
	username = strings.TrimSpace(username)
	if email == "" || username == "" {
		return nil, ErrInvalidRequest
	}

	if err := password.CheckPolicy(plain); err != nil {
		e.metricInc(MetricRegisterPolicyRejected)
		e.emitAudit(ctx, eventRegisterRejected, "", err, func() map[string]string {
			var pe *password.PolicyError
			if errors.As(err, &pe) {
				return map[string]string{"rule": string(pe.Rule)}
			}
			return nil
		})
		return nil, err
	}

	if err := e.ensureAvailable(ctx, email, username); err != nil {
		if errors.Is(err, ErrConflict) {
			e.metricInc(MetricRegisterConflict)
			e.emitAudit(ctx, eventRegisterRejected, "", err, nil)
		}
		return nil, err
	}

	digest, err := e.hasher.Hash(plain)
	if err != nil {
		return nil, err
	}

	account := &Account{
		ID:           e.newID(),
		Email:        email,
		Username:     username,
		PasswordHash: digest,
		Active:       true,
		CreatedAt:    e.now().UTC(),
	}
	if err := e.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicate) {
			e.metricInc(MetricRegisterConflict)
			e.emitAudit(ctx, eventRegisterRejected, "", ErrConflict, nil)
			return nil, ErrConflict
		}
		return nil, unavailable(err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, eventUserRegistered, account.ID, nil, nil)
	return account, nil
}

func (e *Engine) ensureAvailable(ctx context.Context, email, username string) error {
	existing, err := e.accounts.FindByEmail(ctx, email)
	if err != nil {
		return unavailable(err)
	}
	if existing != nil {
		return ErrConflict
	}
	existing, err = e.accounts.FindByUsername(ctx, username)
	if err != nil {
		return unavailable(err)
	}
	if existing != nil {
		return ErrConflict
	}
	return nil
}
