package flows

import (
	"context"

	"github.com/MrEthical07/schedauth/jwt"
)

type ValidateFailure int

const (
	ValidateOK ValidateFailure = iota
	ValidateDecode
	ValidateWrongKind
	ValidateBlacklisted
	ValidateBackend
)

type ValidateDeps struct {
	Decode      func(token string) (*jwt.Claims, error)
	Blacklisted func(ctx context.Context, jti string) (bool, error)
}

type ValidateResult struct {
	Failure ValidateFailure
	Err     error
	Claims  *jwt.Claims
}

// RunValidateAccess accepts an access token that decodes and is not
// blacklisted.
func RunValidateAccess(ctx context.Context, token string, deps ValidateDeps) ValidateResult {
	claims, err := deps.Decode(token)
	if err != nil {
		return ValidateResult{Failure: ValidateDecode, Err: err}
	}
	if claims.Kind != jwt.KindAccess {
		return ValidateResult{Failure: ValidateWrongKind, Claims: claims}
	}
	revoked, err := deps.Blacklisted(ctx, claims.ID)
	if err != nil {
		return ValidateResult{Failure: ValidateBackend, Err: err, Claims: claims}
	}
	if revoked {
		return ValidateResult{Failure: ValidateBlacklisted, Claims: claims}
	}
	return ValidateResult{Claims: claims}
}
