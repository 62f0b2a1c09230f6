package middleware

import (
	"strings"

	"github.com/authgate/backend/internal/models"
	"github.com/authgate/backend/internal/store"
	"github.com/authgate/backend/internal/token"
	"github.com/authgate/backend/pkg/logger"
	"github.com/authgate/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

const currentUserKey = "currentUser"

type AuthMiddleware struct {
	Store  store.UserStore
	Tokens *token.Issuer
}

func NewAuthMiddleware(userStore store.UserStore, tokens *token.Issuer) *AuthMiddleware {
	return &AuthMiddleware{Store: userStore, Tokens: tokens}
}

func CORS() fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins: "http://localhost:3001,http://127.0.0.1:3001",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	})
}

// RequireAuth admits only full sessions: valid signature, unexpired, and
// every configured factor satisfied.
func (a *AuthMiddleware) RequireAuth(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "missing or malformed authorization header")
	}

	claims, err := a.Tokens.Validate(tokenString)
	if err != nil {
		logger.Warn("session_token_rejected", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}
	if !claims.SecondFactorSatisfied {
		return utils.Error(c, fiber.StatusUnauthorized, "two-factor authentication required")
	}

	user, err := a.Store.ByID(c.Context(), claims.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "account not found")
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

// RequireFirstFactor admits the short-lived challenge token a 2FA login
// hands out between the factors. Only the second-factor authenticate
// route uses it.
func (a *AuthMiddleware) RequireFirstFactor(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c)
	if !ok {
		return utils.Error(c, fiber.StatusUnauthorized, "missing or malformed authorization header")
	}

	claims, err := a.Tokens.ValidateChallenge(tokenString)
	if err != nil {
		logger.Warn("challenge_token_rejected", map[string]interface{}{
			"ip":    c.IP(),
			"path":  c.Path(),
			"error": err.Error(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid or expired token")
	}

	user, err := a.Store.ByID(c.Context(), claims.UserID)
	if err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "account not found")
	}

	c.Locals(currentUserKey, user)
	return c.Next()
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if tokenString == authHeader || tokenString == "" {
		return "", false
	}
	return tokenString, true
}

func GetCurrentUser(c *fiber.Ctx) *models.User {
	value := c.Locals(currentUserKey)
	if value == nil {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}
