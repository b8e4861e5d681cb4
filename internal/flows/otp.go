package flows

import (
	"context"

	"github.com/MrEthical07/schedauth/internal/stores"
)

type VerifyOTPFailure int

const (
	VerifyOTPOK VerifyOTPFailure = iota
	VerifyOTPLocked
	VerifyOTPMissing
	VerifyOTPMismatch
	// VerifyOTPLockedNow is a mismatch that reached the attempt threshold.
	VerifyOTPLockedNow
	VerifyOTPBackend
)

type OTPAttemptGuard interface {
	IsLocked(ctx context.Context, action, accountID string) (bool, error)
	RecordFailure(ctx context.Context, action, accountID string) (attempts int, locked bool, err error)
}

type VerifyOTPDeps struct {
	Guard   OTPAttemptGuard
	Consume func(ctx context.Context, action, accountID, code string) (stores.OTPOutcome, error)
}

type VerifyOTPResult struct {
	Failure  VerifyOTPFailure
	Err      error
	Attempts int
}

// RunVerifyOTP checks a submitted code. While the (action, account) pair
// is locked the stored code is not even read. A missing code is not
// counted as a failed attempt.
func RunVerifyOTP(ctx context.Context, accountID, action, code string, deps VerifyOTPDeps) VerifyOTPResult {
	locked, err := deps.Guard.IsLocked(ctx, action, accountID)
	if err != nil {
		return VerifyOTPResult{Failure: VerifyOTPBackend, Err: err}
	}
	if locked {
		return VerifyOTPResult{Failure: VerifyOTPLocked}
	}

	outcome, err := deps.Consume(ctx, action, accountID, code)
	if err != nil {
		return VerifyOTPResult{Failure: VerifyOTPBackend, Err: err}
	}
	switch outcome {
	case stores.OTPMatched:
		return VerifyOTPResult{}
	case stores.OTPMissing:
		return VerifyOTPResult{Failure: VerifyOTPMissing}
	}

	attempts, lockedNow, err := deps.Guard.RecordFailure(ctx, action, accountID)
	if err != nil {
		return VerifyOTPResult{Failure: VerifyOTPBackend, Err: err, Attempts: attempts}
	}
	if lockedNow {
		return VerifyOTPResult{Failure: VerifyOTPLockedNow, Attempts: attempts}
	}
	return VerifyOTPResult{Failure: VerifyOTPMismatch, Attempts: attempts}
}
