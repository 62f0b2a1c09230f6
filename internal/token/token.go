package token

import (
	"fmt"
	"time"

	"github.com/authgate/backend/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	typeSession   = "session"
	typeChallenge = "two_factor_challenge"

	// How long a first-factor-only challenge token stays usable against
	// the second-factor endpoint.
	challengeTTL = 5 * time.Minute
)

type Claims struct {
	UserID                uuid.UUID `json:"userID"`
	SecondFactorSatisfied bool      `json:"secondFactorSatisfied"`
	TokenType             string    `json:"tokenType"`
	jwt.RegisteredClaims
}

// Issuer mints and validates the service's bearer tokens. The signing key
// and session lifetime come from configuration once at startup; there is
// no server-side session state, so rotating the key invalidates every
// outstanding token.
type Issuer struct {
	secret     []byte
	sessionTTL time.Duration
}

func NewIssuer(secret string, sessionTTL time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), sessionTTL: sessionTTL}
}

// Session mints a full bearer token. secondFactorSatisfied records whether
// the account completed every factor it has configured.
func (i *Issuer) Session(userID uuid.UUID, secondFactorSatisfied bool) (string, int, error) {
	return i.sign(userID, secondFactorSatisfied, typeSession, i.sessionTTL)
}

// Challenge mints the short-lived transitional token handed out after a
// correct password on a two-factor account. It is only accepted by the
// second-factor endpoint.
func (i *Issuer) Challenge(userID uuid.UUID) (string, int, error) {
	return i.sign(userID, false, typeChallenge, challengeTTL)
}

func (i *Issuer) sign(userID uuid.UUID, secondFactorSatisfied bool, tokenType string, ttl time.Duration) (string, int, error) {
	now := time.Now()
	claims := Claims{
		UserID:                userID,
		SecondFactorSatisfied: secondFactorSatisfied,
		TokenType:             tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID.String(),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int(ttl.Seconds()), nil
}

// Validate checks signature, structure and expiry of a session token.
func (i *Issuer) Validate(tokenString string) (*Claims, error) {
	return i.validate(tokenString, typeSession)
}

// ValidateChallenge checks a transitional first-factor token.
func (i *Issuer) ValidateChallenge(tokenString string) (*Claims, error) {
	return i.validate(tokenString, typeChallenge)
}

func (i *Issuer) validate(tokenString, wantType string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", auth.ErrTokenInvalid, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, auth.ErrTokenInvalid
	}
	if claims.TokenType != wantType {
		return nil, fmt.Errorf("%w: wrong token type", auth.ErrTokenInvalid)
	}

	return claims, nil
}

// Cookie renders the attribute string clients store the token under.
func Cookie(tokenString string, maxAge int) string {
	return fmt.Sprintf("Authorization=%s; HttpOnly; Max-Age=%d", tokenString, maxAge)
}

// ExpiredCookie is the logout replacement: same attribute, already expired.
func ExpiredCookie() string {
	return "Authorization=; HttpOnly; Max-Age=0"
}
