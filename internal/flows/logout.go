package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/schedauth/jwt"
)

type LogoutDeps struct {
	Decode    func(token string) (*jwt.Claims, error)
	Revoke    func(ctx context.Context, jti string) (bool, error)
	RevokeAll func(ctx context.Context, accountID string) (int, error)
	Blacklist func(ctx context.Context, jti string, expiresAt time.Time) error
	// Warn receives backend errors, which logout never returns.
	Warn func(step string, err error)
}

type LogoutResult struct {
	AccountID         string
	RefreshRevoked    bool
	RevokedAll        int
	AccessBlacklisted bool
}

// RunLogout revokes whatever the supplied tokens allow and reports what it
// did. Missing, undecodable or wrong-kind tokens are skipped. With
// revokeAll the account comes from the refresh token, or from the access
// token when no refresh token decodes.
func RunLogout(ctx context.Context, accessToken, refreshToken string, revokeAll bool, deps LogoutDeps) LogoutResult {
	var res LogoutResult

	if rc := decodeKind(deps.Decode, refreshToken, jwt.KindRefresh); rc != nil {
		res.AccountID = rc.Subject
		revoked, err := deps.Revoke(ctx, rc.ID)
		if err != nil {
			deps.Warn("revoke_refresh", err)
		}
		res.RefreshRevoked = revoked
	}

	ac := decodeKind(deps.Decode, accessToken, jwt.KindAccess)
	if ac != nil {
		if res.AccountID == "" {
			res.AccountID = ac.Subject
		}
		if err := deps.Blacklist(ctx, ac.ID, ac.Expiry()); err != nil {
			deps.Warn("blacklist_access", err)
		} else {
			res.AccessBlacklisted = true
		}
	}

	if revokeAll && res.AccountID != "" {
		n, err := deps.RevokeAll(ctx, res.AccountID)
		if err != nil {
			deps.Warn("revoke_all", err)
		}
		res.RevokedAll = n
	}
	return res
}

func decodeKind(decode func(string) (*jwt.Claims, error), token string, kind jwt.Kind) *jwt.Claims {
	if token == "" {
		return nil
	}
	claims, err := decode(token)
	if err != nil || claims.Kind != kind {
		return nil
	}
	return claims
}
