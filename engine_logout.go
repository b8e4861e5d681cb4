package schedauth

import (
	"context"
	"strconv"

	"github.com/MrEthical07/schedauth/internal/flows"
)

// Logout revokes what the supplied tokens allow. It never fails: bad or
// missing tokens are skipped and backend errors are only logged.
func (e *Engine) Logout(ctx context.Context, req LogoutRequest) {
	if e.ready() != nil {
		return
	}
	res := flows.RunLogout(ctx, req.AccessToken, req.RefreshToken, req.RevokeAll, e.flows.Logout)

	e.metricInc(MetricLogout)
	if res.RefreshRevoked {
		e.emitAudit(ctx, eventRefreshRevoked, res.AccountID, nil, nil)
	}
	if res.AccessBlacklisted {
		e.emitAudit(ctx, eventAccessBlacklisted, res.AccountID, nil, nil)
	}
	if req.RevokeAll && res.AccountID != "" {
		e.metricInc(MetricLogoutAll)
		e.emitAudit(ctx, eventSessionsRevoked, res.AccountID, nil, revokedMeta(res.RevokedAll))
	}
}

// RevokeAllSessions revokes every live refresh token of accountID. Access
// tokens already handed out stay valid until they expire.
func (e *Engine) RevokeAllSessions(ctx context.Context, accountID string) (int, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if accountID == "" {
		return 0, ErrInvalidRequest
	}
	n, err := e.refreshList.RevokeAll(ctx, accountID)
	if err != nil {
		return 0, unavailable(err)
	}
	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, eventSessionsRevoked, accountID, nil, revokedMeta(n))
	return n, nil
}

func revokedMeta(n int) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"revoked": strconv.Itoa(n)}
	}
}
