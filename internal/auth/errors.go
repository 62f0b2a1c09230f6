package auth

import "errors"

// Every failure the authentication core reports to its callers is one of
// these recoverable outcomes. Account-not-found and password-mismatch are
// deliberately collapsed into ErrInvalidCredentials so callers cannot
// enumerate registered accounts.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrDuplicateAccount     = errors.New("account already registered")
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")
	ErrTokenInvalid         = errors.New("invalid token")
	ErrAccountNotFound      = errors.New("account not found")
	ErrStoreUnavailable     = errors.New("credential store unavailable")
)
