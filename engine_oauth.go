package schedauth

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/schedauth/internal"
	"github.com/MrEthical07/schedauth/internal/stores"
	"go.uber.org/zap"
)

// CreateOAuthState returns a single-use state token bound to accountID and
// provider, valid for OAuth.StateTTL.
func (e *Engine) CreateOAuthState(ctx context.Context, accountID, provider string) (string, error) {
	if err := e.ready(); err != nil {
		return "", err
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if accountID == "" || provider == "" {
		return "", ErrInvalidRequest
	}
	state, err := internal.NewURLToken(e.config.OAuth.StateBytes)
	if err != nil {
		return "", err
	}
	if err := e.oauthStates.Put(ctx, state, stores.OAuthStateRecord{AccountID: accountID, Provider: provider}); err != nil {
		return "", unavailable(err)
	}
	e.metricInc(MetricOAuthStateCreated)
	e.emitAudit(ctx, eventOAuthStateCreated, accountID, nil, providerMeta(provider))
	return state, nil
}

// ConsumeOAuthState resolves and deletes state. ok is false when the state
// is unknown, expired or already used.
func (e *Engine) ConsumeOAuthState(ctx context.Context, state string) (*OAuthState, bool, error) {
	if err := e.ready(); err != nil {
		return nil, false, err
	}
	if state == "" {
		e.metricInc(MetricOAuthStateRejected)
		return nil, false, nil
	}
	rec, ok, err := e.oauthStates.Take(ctx, state)
	if err != nil {
		return nil, false, unavailable(err)
	}
	if !ok {
		e.metricInc(MetricOAuthStateRejected)
		return nil, false, nil
	}
	return &OAuthState{AccountID: rec.AccountID, Provider: rec.Provider}, true, nil
}

// LinkPlatform stores encrypted provider tokens for (account, provider),
// updating the existing link when there is one. A provider identity
// already linked to a different account is ErrConflict.
func (e *Engine) LinkPlatform(ctx context.Context, req LinkPlatformRequest) (*ConnectedPlatform, error) {
	if err := e.platformsReady(); err != nil {
		return nil, err
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	if req.AccountID == "" || req.Provider == "" || req.AccessToken == "" {
		return nil, ErrInvalidRequest
	}

	if req.ProviderUserID != "" {
		other, err := e.platforms.FindByProviderAndProviderUserID(ctx, req.Provider, req.ProviderUserID)
		if err != nil {
			return nil, unavailable(err)
		}
		if other != nil && other.AccountID != req.AccountID {
			return nil, ErrConflict
		}
	}

	accessEnc, err := e.cipher.Encrypt(req.AccessToken)
	if err != nil {
		return nil, err
	}
	refreshEnc, err := e.cipher.Encrypt(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	existing, err := e.platforms.FindByAccountAndProvider(ctx, req.AccountID, req.Provider)
	if err != nil {
		return nil, unavailable(err)
	}
	now := e.now().UTC()
	if existing != nil {
		if err := e.platforms.UpdateTokens(ctx, existing.ID, accessEnc, refreshEnc, req.ExpiresAt); err != nil {
			return nil, unavailable(err)
		}
		existing.AccessTokenEnc, existing.RefreshTokenEnc = accessEnc, refreshEnc
		existing.TokenExpiresAt = req.ExpiresAt
		existing.UpdatedAt = now
		if req.ProviderUserID != "" && req.ProviderUserID != existing.ProviderUserID {
			if err := e.platforms.UpdateProviderUserID(ctx, existing.ID, req.ProviderUserID); err != nil {
				return nil, repoWriteErr(err)
			}
			existing.ProviderUserID = req.ProviderUserID
		}
		e.metricInc(MetricPlatformLinked)
		e.emitAudit(ctx, eventPlatformLinked, req.AccountID, nil, providerMeta(req.Provider))
		return existing, nil
	}

	p := &ConnectedPlatform{
		ID:              e.newID(),
		AccountID:       req.AccountID,
		Provider:        req.Provider,
		ProviderUserID:  req.ProviderUserID,
		AccessTokenEnc:  accessEnc,
		RefreshTokenEnc: refreshEnc,
		TokenExpiresAt:  req.ExpiresAt,
		Scope:           req.Scope,
		Metadata:        req.Metadata,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := e.platforms.Create(ctx, p); err != nil {
		return nil, repoWriteErr(err)
	}
	e.metricInc(MetricPlatformLinked)
	e.emitAudit(ctx, eventPlatformLinked, req.AccountID, nil, providerMeta(req.Provider))
	return p, nil
}

// PlatformTokens decrypts the stored tokens of one of accountID's links.
// Ciphertext that no longer opens, for example after a key change, is
// ErrCipherFailure.
func (e *Engine) PlatformTokens(ctx context.Context, accountID, platformID string) (*PlatformTokens, error) {
	p, err := e.ownedPlatform(ctx, accountID, platformID)
	if err != nil {
		return nil, err
	}
	access, ok := e.cipher.Decrypt(p.AccessTokenEnc)
	if !ok {
		return nil, e.cipherFailure(ctx, p)
	}
	refresh, ok := e.cipher.Decrypt(p.RefreshTokenEnc)
	if !ok {
		return nil, e.cipherFailure(ctx, p)
	}
	return &PlatformTokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: p.TokenExpiresAt}, nil
}

// ListPlatforms returns accountID's links. Token fields stay encrypted.
func (e *Engine) ListPlatforms(ctx context.Context, accountID string) ([]ConnectedPlatform, error) {
	if err := e.platformsReady(); err != nil {
		return nil, err
	}
	list, err := e.platforms.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, unavailable(err)
	}
	return list, nil
}

func (e *Engine) UnlinkPlatform(ctx context.Context, accountID, platformID string) error {
	p, err := e.ownedPlatform(ctx, accountID, platformID)
	if err != nil {
		return err
	}
	if err := e.platforms.Delete(ctx, p.ID); err != nil {
		return unavailable(err)
	}
	e.metricInc(MetricPlatformUnlinked)
	e.emitAudit(ctx, eventPlatformUnlinked, accountID, nil, providerMeta(p.Provider))
	return nil
}

// UpdatePlatformTokens replaces the stored tokens after a provider-side
// refresh. An empty refreshToken clears the stored one.
func (e *Engine) UpdatePlatformTokens(ctx context.Context, accountID, platformID string, tokens PlatformTokens) error {
	if tokens.AccessToken == "" {
		return ErrInvalidRequest
	}
	p, err := e.ownedPlatform(ctx, accountID, platformID)
	if err != nil {
		return err
	}
	accessEnc, err := e.cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return err
	}
	refreshEnc, err := e.cipher.Encrypt(tokens.RefreshToken)
	if err != nil {
		return err
	}
	if err := e.platforms.UpdateTokens(ctx, p.ID, accessEnc, refreshEnc, tokens.ExpiresAt); err != nil {
		return unavailable(err)
	}
	return nil
}

// SetProviderUserID records the provider's identifier for a link once it
// is known.
func (e *Engine) SetProviderUserID(ctx context.Context, accountID, platformID, providerUserID string) error {
	if providerUserID == "" {
		return ErrInvalidRequest
	}
	p, err := e.ownedPlatform(ctx, accountID, platformID)
	if err != nil {
		return err
	}
	other, err := e.platforms.FindByProviderAndProviderUserID(ctx, p.Provider, providerUserID)
	if err != nil {
		return unavailable(err)
	}
	if other != nil && other.ID != p.ID {
		return ErrConflict
	}
	if err := e.platforms.UpdateProviderUserID(ctx, p.ID, providerUserID); err != nil {
		return repoWriteErr(err)
	}
	return nil
}

func (e *Engine) ownedPlatform(ctx context.Context, accountID, platformID string) (*ConnectedPlatform, error) {
	if err := e.platformsReady(); err != nil {
		return nil, err
	}
	p, err := e.platforms.FindByID(ctx, platformID)
	if err != nil {
		return nil, unavailable(err)
	}
	if p == nil || p.AccountID != accountID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (e *Engine) platformsReady() error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.platforms == nil || e.cipher == nil {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) cipherFailure(ctx context.Context, p *ConnectedPlatform) error {
	e.metricInc(MetricCipherFailure)
	e.emitAudit(ctx, eventPlatformDecryptFail, p.AccountID, ErrCipherFailure, providerMeta(p.Provider))
	e.warn(eventPlatformDecryptFail, zap.String("platform_id", p.ID), zap.String("provider", p.Provider))
	return ErrCipherFailure
}

func providerMeta(provider string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"provider": provider}
	}
}

// repoWriteErr maps a uniqueness violation lost to a concurrent writer to
// ErrConflict.
func repoWriteErr(err error) error {
	if errors.Is(err, ErrDuplicate) {
		return ErrConflict
	}
	return unavailable(err)
}
