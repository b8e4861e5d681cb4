package internal

// Redis key layout. These names are shared with existing deployments and
// must not change.
const (
	RefreshPrefix      = "rt:"
	RefreshSetPrefix   = "rts:"
	BlacklistPrefix    = "bl:"
	LoginAttemptPrefix = "la:attempts:"
	LoginLockPrefix    = "la:lock:"
	OAuthStatePrefix   = "oauth_state:"
)

func RefreshKey(jti string) string { return RefreshPrefix + jti }

func RefreshSetKey(accountID string) string { return RefreshSetPrefix + accountID }

func BlacklistKey(jti string) string { return BlacklistPrefix + jti }

func OAuthStateKey(state string) string { return OAuthStatePrefix + state }

func OTPKey(action, accountID string) string {
	return "otp:" + action + ":" + accountID
}

func OTPRateKey(action, accountID string) string {
	return "otp:rate:" + action + ":" + accountID
}

// OTPAttemptPrefix and OTPLockPrefix are completed with the account id.
func OTPAttemptPrefix(action string) string {
	return "otp:attempts:" + action + ":"
}

func OTPLockPrefix(action string) string {
	return "otp:lock:" + action + ":"
}
