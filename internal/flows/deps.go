package flows

// Deps groups the dependency sets of every flow. The Engine builds one value
// at construction and passes the matching field to each Run function.
//
// A is the account record type owned by the caller; flows only read it
// through AuthenticateDeps.Credentials.
type Deps[A any] struct {
	Authenticate AuthenticateDeps[A]
	Refresh      RefreshDeps
	Logout       LogoutDeps
	Validate     ValidateDeps
	VerifyOTP    VerifyOTPDeps
}
