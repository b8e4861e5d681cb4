package flows

import "context"

type AuthenticateFailure int

const (
	AuthenticateOK AuthenticateFailure = iota
	AuthenticateLookup
	AuthenticateUnknownAccount
	AuthenticateLockCheck
	AuthenticateLocked
	AuthenticateWrongPassword
	// AuthenticateLockedNow is a wrong password that reached the threshold.
	AuthenticateLockedNow
	AuthenticateRecordFailure
	AuthenticateDisabled
	AuthenticateReset
)

// Credentials is what the flow needs to know about an account.
type Credentials struct {
	ID           string
	PasswordHash string
	Active       bool
}

// AttemptGuard is the brute-force guard as seen by the flow.
type AttemptGuard interface {
	IsLocked(ctx context.Context, accountID string) (bool, error)
	RecordFailure(ctx context.Context, accountID string) (attempts int, locked bool, err error)
	Reset(ctx context.Context, accountID string) error
}

type AuthenticateDeps[A any] struct {
	// FindByEmail returns found=false, err=nil for an unknown email.
	FindByEmail func(ctx context.Context, email string) (account A, found bool, err error)
	Credentials func(A) Credentials
	Verify      func(password, digest string) bool
	// VerifyDummy burns the work of one Verify against a fixed digest.
	VerifyDummy func(password string)
	Guard       AttemptGuard
}

type AuthenticateResult[A any] struct {
	Failure  AuthenticateFailure
	Err      error
	Account  A
	ID       string
	Attempts int
}

// RunAuthenticate checks a password login. Unknown emails cost one dummy
// verification so they cannot be told apart from wrong passwords by timing.
// A locked account is rejected before any verification.
func RunAuthenticate[A any](ctx context.Context, email, password string, deps AuthenticateDeps[A]) AuthenticateResult[A] {
	account, found, err := deps.FindByEmail(ctx, email)
	if err != nil {
		return AuthenticateResult[A]{Failure: AuthenticateLookup, Err: err}
	}
	if !found {
		deps.VerifyDummy(password)
		return AuthenticateResult[A]{Failure: AuthenticateUnknownAccount}
	}

	creds := deps.Credentials(account)
	res := AuthenticateResult[A]{Account: account, ID: creds.ID}

	locked, err := deps.Guard.IsLocked(ctx, creds.ID)
	if err != nil {
		res.Failure, res.Err = AuthenticateLockCheck, err
		return res
	}
	if locked {
		res.Failure = AuthenticateLocked
		return res
	}

	if !deps.Verify(password, creds.PasswordHash) {
		attempts, lockedNow, err := deps.Guard.RecordFailure(ctx, creds.ID)
		res.Attempts = attempts
		switch {
		case err != nil:
			res.Failure, res.Err = AuthenticateRecordFailure, err
		case lockedNow:
			res.Failure = AuthenticateLockedNow
		default:
			res.Failure = AuthenticateWrongPassword
		}
		return res
	}

	if !creds.Active {
		res.Failure = AuthenticateDisabled
		return res
	}

	if err := deps.Guard.Reset(ctx, creds.ID); err != nil {
		res.Failure, res.Err = AuthenticateReset, err
		return res
	}
	return res
}
