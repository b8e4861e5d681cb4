package schedauth

import (
	"errors"

	"github.com/MrEthical07/schedauth/jwt"
	"github.com/MrEthical07/schedauth/password"
)

// Caller-facing failures. Everything the Engine returns matches one of these
// with errors.Is; backend detail, when present, is wrapped after the sentinel.
var (
	// ErrPasswordPolicy matches every *password.PolicyError.
	ErrPasswordPolicy = password.ErrPolicy
	// ErrConflict means the email or username is already taken.
	ErrConflict = errors.New("account already exists")
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrAccountDisabled    = errors.New("account disabled")
	// ErrTokenInvalid is a malformed, expired, forged or wrong-kind token.
	ErrTokenInvalid = jwt.ErrTokenInvalid
	// ErrRevoked is a well-formed token that is no longer honoured.
	ErrRevoked         = errors.New("token revoked")
	ErrRateLimited     = errors.New("rate limited")
	ErrDeliveryFailure = errors.New("message delivery failed")
	// ErrCipherFailure means a stored provider token could not be decrypted.
	ErrCipherFailure = errors.New("stored token could not be decrypted")
	// ErrUnavailable wraps state store and repository failures.
	ErrUnavailable = errors.New("backend unavailable")
	ErrNotFound    = errors.New("not found")
	// ErrInvalidRequest is a structurally unusable argument, such as an
	// empty email or an OTP action with characters outside [a-z0-9_].
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEngineNotReady is returned by methods on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// ErrDuplicate is what repositories return from Create when a uniqueness
// constraint rejects the row. The Engine reports it as ErrConflict.
var ErrDuplicate = errors.New("duplicate record")
