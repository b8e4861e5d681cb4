package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/schedauth/jwt"
)

type RefreshFailure int

const (
	RefreshOK RefreshFailure = iota
	RefreshDecode
	RefreshWrongKind
	RefreshIssue
	RefreshRotate
	RefreshRevoked
)

// RefreshRotator swaps one refresh jti for another atomically.
type RefreshRotator interface {
	Rotate(ctx context.Context, accountID, oldJTI, newJTI string, ttl time.Duration) (bool, error)
}

type RefreshDeps struct {
	Decode    func(token string) (*jwt.Claims, error)
	IssuePair func(subject string) (access, refresh jwt.Issued, err error)
	AllowList RefreshRotator
	Now       func() time.Time
}

type RefreshResult struct {
	Failure   RefreshFailure
	Err       error
	AccountID string
	OldJTI    string
	Access    jwt.Issued
	Refresh   jwt.Issued
}

// RunRefresh exchanges a refresh token for a new pair. The new pair is
// signed first; the rotation then removes the old jti and records the new
// one in a single step, and only if the old jti is still live for the same
// subject. A token can therefore be exchanged at most once.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) RefreshResult {
	claims, err := deps.Decode(token)
	if err != nil {
		return RefreshResult{Failure: RefreshDecode, Err: err}
	}
	res := RefreshResult{AccountID: claims.Subject, OldJTI: claims.ID}
	if claims.Kind != jwt.KindRefresh {
		res.Failure = RefreshWrongKind
		return res
	}

	access, refresh, err := deps.IssuePair(claims.Subject)
	if err != nil {
		res.Failure, res.Err = RefreshIssue, err
		return res
	}

	ttl := refresh.ExpiresAt.Sub(deps.Now())
	if ttl <= 0 {
		ttl = time.Second
	}
	rotated, err := deps.AllowList.Rotate(ctx, claims.Subject, claims.ID, refresh.ID, ttl)
	if err != nil {
		res.Failure, res.Err = RefreshRotate, err
		return res
	}
	if !rotated {
		res.Failure = RefreshRevoked
		return res
	}

	res.Access, res.Refresh = access, refresh
	return res
}
