package services

import (
	"context"
	"errors"
	"time"

	"github.com/authgate/backend/internal/auth"
	"github.com/authgate/backend/internal/models"
	"github.com/authgate/backend/internal/store"
	"github.com/authgate/backend/internal/token"
)

// AuthService drives the authentication state machine: password first
// factor, optional TOTP second factor, and session issuance once every
// configured factor is satisfied.
type AuthService struct {
	store  store.UserStore
	hasher *auth.PasswordHasher
	totp   *auth.TOTPProvider
	tokens *token.Issuer
}

func NewAuthService(userStore store.UserStore, hasher *auth.PasswordHasher, totp *auth.TOTPProvider, tokens *token.Issuer) *AuthService {
	return &AuthService{
		store:  userStore,
		hasher: hasher,
		totp:   totp,
		tokens: tokens,
	}
}

// Session is the bearer artifact returned to the client: the signed token,
// its lifetime in seconds, and the cookie attribute string carrying it.
type Session struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
	Cookie    string `json:"-"`
}

type RegisterInput struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
}

// LoginResult is either a full session or the marker that a second factor
// is still owed. In the latter case ChallengeToken is the only credential
// handed out; it is accepted solely by AuthenticateSecondFactor's route.
type LoginResult struct {
	User              *models.PublicUser
	Session           *Session
	TwoFactorRequired bool
	ChallengeToken    string
	ChallengeCookie   string
}

// Register creates the account and logs it straight in. Duplicate emails
// are detected by the store's unique index at insert time, not by a prior
// read, so concurrent registrations cannot both succeed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, *Session, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		DateOfBirth:  in.DateOfBirth,
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	// No second factor exists yet, so the session counts as fully
	// authenticated.
	session, err := s.session(user, true)
	if err != nil {
		return nil, nil, err
	}
	return user.Public(), session, nil
}

// Login verifies the first factor. Unknown account and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.verifyFirstFactor(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if user.TwoFactorEnabled {
		challenge, expiresIn, err := s.tokens.Challenge(user.ID)
		if err != nil {
			return nil, err
		}
		return &LoginResult{
			TwoFactorRequired: true,
			ChallengeToken:    challenge,
			ChallengeCookie:   token.Cookie(challenge, expiresIn),
		}, nil
	}

	session, err := s.session(user, true)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user.Public(), Session: session}, nil
}

// EnrollTwoFactor generates a fresh secret and stores it as pending.
// Calling it again replaces the pending secret, invalidating any earlier
// unconfirmed enrollment. TwoFactorEnabled stays false until the account
// proves possession via ConfirmTwoFactor.
func (s *AuthService) EnrollTwoFactor(ctx context.Context, user *models.User) (*auth.Enrollment, error) {
	enrollment, err := s.totp.Enroll(user.Email)
	if err != nil {
		return nil, err
	}

	err = s.store.UpdateFields(ctx, user.ID, map[string]interface{}{
		"totp_secret":        enrollment.Secret,
		"two_factor_enabled": false,
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

// ConfirmTwoFactor turns the second factor on once the submitted code
// proves the authenticator holds the pending secret. No token is issued.
func (s *AuthService) ConfirmTwoFactor(ctx context.Context, user *models.User, code string) error {
	if !s.totp.Verify(user.TOTPSecret, code, time.Now()) {
		return auth.ErrInvalidTwoFactorCode
	}
	return s.store.UpdateFields(ctx, user.ID, map[string]interface{}{
		"two_factor_enabled": true,
	})
}

// AuthenticateSecondFactor completes a login that stopped at the
// two-factor marker, minting the full session.
func (s *AuthService) AuthenticateSecondFactor(ctx context.Context, user *models.User, code string) (*models.PublicUser, *Session, error) {
	if !s.totp.Verify(user.TOTPSecret, code, time.Now()) {
		return nil, nil, auth.ErrInvalidTwoFactorCode
	}
	session, err := s.session(user, true)
	if err != nil {
		return nil, nil, err
	}
	return user.Public(), session, nil
}

// Logout is stateless: there is no session table, so logging out means
// handing the client an already-expired replacement cookie to store.
func (s *AuthService) Logout() *Session {
	return &Session{Cookie: token.ExpiredCookie()}
}

// Unregister re-verifies the password with login semantics before
// deleting the account.
func (s *AuthService) Unregister(ctx context.Context, email, password string) error {
	user, err := s.verifyFirstFactor(ctx, email, password)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, user.ID)
}

func (s *AuthService) verifyFirstFactor(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.store.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrAccountNotFound) {
			return nil, auth.ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, auth.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) session(user *models.User, secondFactorSatisfied bool) (*Session, error) {
	signed, expiresIn, err := s.tokens.Session(user.ID, secondFactorSatisfied)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     signed,
		ExpiresIn: expiresIn,
		Cookie:    token.Cookie(signed, expiresIn),
	}, nil
}
