package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/schedauth"
	"github.com/jackc/pgx/v5"
)

const platformColumns = `id, account_id, provider, provider_user_id, access_token_enc,
	refresh_token_enc, token_expires_at, scope, metadata, created_at, updated_at`

type Platforms struct {
	db DB
}

func NewPlatforms(db DB) *Platforms {
	return &Platforms{db: db}
}

// nullable maps "" to SQL NULL so the partial unique index ignores links
// whose provider user id is not known yet.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanPlatform(row pgx.Row) (*schedauth.ConnectedPlatform, error) {
	var (
		p    schedauth.ConnectedPlatform
		puid *string
	)
	err := row.Scan(
		&p.ID, &p.AccountID, &p.Provider, &puid, &p.AccessTokenEnc,
		&p.RefreshTokenEnc, &p.TokenExpiresAt, &p.Scope, &p.Metadata, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if puid != nil {
		p.ProviderUserID = *puid
	}
	return &p, nil
}

func (r *Platforms) Create(ctx context.Context, p *schedauth.ConnectedPlatform) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO connected_platforms (`+platformColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID, p.AccountID, p.Provider, nullable(p.ProviderUserID), p.AccessTokenEnc,
		p.RefreshTokenEnc, p.TokenExpiresAt, p.Scope, p.Metadata, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return writeErr("create platform", err)
	}
	return nil
}

func (r *Platforms) findOne(ctx context.Context, where string, args ...any) (*schedauth.ConnectedPlatform, error) {
	p, err := scanPlatform(r.db.QueryRow(ctx, `SELECT `+platformColumns+` FROM connected_platforms WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find platform: %w", err)
	}
	return p, nil
}

func (r *Platforms) FindByID(ctx context.Context, id string) (*schedauth.ConnectedPlatform, error) {
	return r.findOne(ctx, `id = $1`, id)
}

func (r *Platforms) FindByAccountAndProvider(ctx context.Context, accountID, provider string) (*schedauth.ConnectedPlatform, error) {
	return r.findOne(ctx, `account_id = $1 AND provider = $2`, accountID, provider)
}

func (r *Platforms) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*schedauth.ConnectedPlatform, error) {
	if providerUserID == "" {
		return nil, nil
	}
	return r.findOne(ctx, `provider = $1 AND provider_user_id = $2`, provider, providerUserID)
}

func (r *Platforms) ListByAccount(ctx context.Context, accountID string) ([]schedauth.ConnectedPlatform, error) {
	rows, err := r.db.Query(ctx, `SELECT `+platformColumns+` FROM connected_platforms
		WHERE account_id = $1 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	out := make([]schedauth.ConnectedPlatform, 0)
	for rows.Next() {
		p, err := scanPlatform(rows)
		if err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	return out, nil
}

func (r *Platforms) UpdateTokens(ctx context.Context, id, accessTokenEnc, refreshTokenEnc string, expiresAt *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE connected_platforms
		SET access_token_enc = $2, refresh_token_enc = $3, token_expires_at = $4, updated_at = now()
		WHERE id = $1`, id, accessTokenEnc, refreshTokenEnc, expiresAt)
	if err != nil {
		return fmt.Errorf("update platform tokens: %w", err)
	}
	return nil
}

func (r *Platforms) UpdateProviderUserID(ctx context.Context, id, providerUserID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE connected_platforms SET provider_user_id = $2, updated_at = now()
		WHERE id = $1`, id, nullable(providerUserID))
	if err != nil {
		return writeErr("update provider user id", err)
	}
	return nil
}

func (r *Platforms) Delete(ctx context.Context, id string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM connected_platforms WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete platform: %w", err)
	}
	return nil
}
