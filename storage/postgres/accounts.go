package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, email, username, password_hash, active, created_at, last_login_at`

type Accounts struct {
	db DB
}

func NewAccounts(db DB) *Accounts {
	return &Accounts{db: db}
}

func (r *Accounts) FindByEmail(ctx context.Context, email string) (*schedauth.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email)
}

func (r *Accounts) FindByUsername(ctx context.Context, username string) (*schedauth.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE lower(username) = lower($1)`, username)
}

func (r *Accounts) FindByID(ctx context.Context, id string) (*schedauth.Account, error) {
	return r.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *Accounts) findOne(ctx context.Context, query string, arg string) (*schedauth.Account, error) {
	var a schedauth.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.Username, &a.PasswordHash, &a.Active, &a.CreatedAt, &a.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return &a, nil
}

func (r *Accounts) Create(ctx context.Context, a *schedauth.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO accounts (id, email, username, password_hash, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Email, a.Username, a.PasswordHash, a.Active, a.CreatedAt,
	)
	if err != nil {
		return writeErr("create account", err)
	}
	return nil
}

func (r *Accounts) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.Exec(ctx, `UPDATE accounts SET last_login_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	return nil
}

func (r *Accounts) UpdatePasswordHash(ctx context.Context, id, digest string) error {
	if _, err := r.db.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, digest); err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	return nil
}

// SetActive reports whether a row was changed.
func (r *Accounts) SetActive(ctx context.Context, id string, active bool) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET active = $2 WHERE id = $1`, id, active)
	if err != nil {
		return false, fmt.Errorf("set active: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
