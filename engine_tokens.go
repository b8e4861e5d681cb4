package schedauth

import (
	"context"
	"time"

	"github.com/MrEthical07/schedauth/internal/flows"
	"github.com/MrEthical07/schedauth/jwt"
	"go.uber.org/zap"
)

// IssueTokens signs an access and refresh token for account and records
// the refresh token as live until its expiry.
func (e *Engine) IssueTokens(ctx context.Context, account *Account) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if account == nil || account.ID == "" {
		return nil, ErrInvalidRequest
	}

	access, refresh, err := e.issuePair(account.ID)
	if err != nil {
		return nil, err
	}
	ttl := refresh.ExpiresAt.Sub(e.now())
	if err := e.refreshList.Store(ctx, account.ID, refresh.ID, ttl); err != nil {
		return nil, unavailable(err)
	}

	e.metricInc(MetricTokensIssued)
	e.emitAudit(ctx, eventTokensIssued, account.ID, nil, nil)
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (e *Engine) issuePair(subject string) (access, refresh jwt.Issued, err error) {
	access, err = e.tokens.Issue(subject, jwt.KindAccess, e.config.JWT.AccessTTL)
	if err != nil {
		return jwt.Issued{}, jwt.Issued{}, err
	}
	refresh, err = e.tokens.Issue(subject, jwt.KindRefresh, e.config.JWT.RefreshTTL)
	if err != nil {
		return jwt.Issued{}, jwt.Issued{}, err
	}
	return access, refresh, nil
}

// Refresh exchanges a refresh token for a new pair. Each refresh token can
// be exchanged once; a second exchange, or one after logout, returns
// ErrRevoked.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}

	res := flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
	switch res.Failure {
	case flows.RefreshOK:
	case flows.RefreshDecode:
		e.metricInc(MetricRefreshInvalid)
		return nil, res.Err
	case flows.RefreshWrongKind:
		e.metricInc(MetricRefreshInvalid)
		return nil, ErrTokenInvalid
	case flows.RefreshRevoked:
		e.metricInc(MetricRefreshRevoked)
		e.emitAudit(ctx, eventRefreshReuseRejected, res.AccountID, ErrRevoked, func() map[string]string {
			return map[string]string{"jti": res.OldJTI}
		})
		return nil, ErrRevoked
	case flows.RefreshIssue:
		return nil, res.Err
	default:
		return nil, unavailable(res.Err)
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, eventRefreshRotated, res.AccountID, nil, nil)
	return &TokenPair{Access: res.Access, Refresh: res.Refresh}, nil
}

// ValidateAccess accepts an access token that decodes, has not expired and
// has not been blacklisted by a logout.
func (e *Engine) ValidateAccess(ctx context.Context, accessToken string) (*Claims, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { e.metricObserve(MetricValidateLatency, time.Since(start)) }()

	res := flows.RunValidateAccess(ctx, accessToken, e.flows.Validate)
	switch res.Failure {
	case flows.ValidateOK:
		return res.Claims, nil
	case flows.ValidateDecode:
		return nil, res.Err
	case flows.ValidateWrongKind:
		return nil, ErrTokenInvalid
	case flows.ValidateBlacklisted:
		e.metricInc(MetricAccessBlacklisted)
		return nil, ErrRevoked
	default:
		return nil, unavailable(res.Err)
	}
}

// CurrentAccount validates accessToken and loads its subject, which must
// still exist and be active.
func (e *Engine) CurrentAccount(ctx context.Context, accessToken string) (*Account, error) {
	claims, err := e.ValidateAccess(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	account, err := e.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		return nil, unavailable(err)
	}
	if account == nil {
		e.log.Debug("token_subject_missing", zap.String("user_id", claims.Subject))
		return nil, ErrTokenInvalid
	}
	if !account.Active {
		return nil, ErrAccountDisabled
	}
	return account, nil
}
