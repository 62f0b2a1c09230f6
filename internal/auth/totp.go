package auth

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPProvider generates and verifies time-based one-time passwords.
// Verification accepts one time step of skew in either direction to
// tolerate client clock drift.
type TOTPProvider struct {
	issuer string
}

// Enrollment carries a freshly generated secret and the otpauth:// URI an
// authenticator app enrolls from. Persisting the secret against the
// account is the caller's job.
type Enrollment struct {
	Secret string
	URI    string
}

func NewTOTPProvider(issuer string) *TOTPProvider {
	return &TOTPProvider{issuer: issuer}
}

func (p *TOTPProvider) Enroll(accountLabel string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: accountLabel,
	})
	if err != nil {
		return nil, err
	}
	return &Enrollment{Secret: key.Secret(), URI: key.URL()}, nil
}

func (p *TOTPProvider) Verify(secret, code string, now time.Time) bool {
	if secret == "" {
		return false
	}
	valid, err := totp.ValidateCustom(code, secret, now, totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
