package handlers

import (
	"github.com/authgate/backend/internal/middleware"
	"github.com/authgate/backend/internal/services"
	"github.com/authgate/backend/pkg/logger"
	"github.com/authgate/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type TwoFactorHandler struct {
	Auth *services.AuthService
}

func NewTwoFactorHandler(authService *services.AuthService) *TwoFactorHandler {
	return &TwoFactorHandler{Auth: authService}
}

// Setup generates a pending TOTP secret for the authenticated account and
// returns it with the otpauth URI. Repeating the call replaces the
// pending secret.
func (h *TwoFactorHandler) Setup(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	enrollment, err := h.Auth.EnrollTwoFactor(c.Context(), user)
	if err != nil {
		return authError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "two_factor_enrollment_started", nil)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"secret": enrollment.Secret,
		"qrUri":  enrollment.URI,
	})
}

type twoFactorCodeRequest struct {
	Code string `json:"code"`
}

// Confirm proves possession of the enrolled secret and switches the
// second factor on. It never issues a session.
func (h *TwoFactorHandler) Confirm(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req twoFactorCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code is required")
	}

	if err := h.Auth.ConfirmTwoFactor(c.Context(), user, req.Code); err != nil {
		return authError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "two_factor_enabled", nil)

	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "two-factor authentication enabled"})
}

// Authenticate completes a login that stopped at the two-factor marker.
// It sits behind the challenge-token middleware, not the full-session one.
func (h *TwoFactorHandler) Authenticate(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req twoFactorCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" {
		return utils.Error(c, fiber.StatusBadRequest, "code is required")
	}

	publicUser, session, err := h.Auth.AuthenticateSecondFactor(c.Context(), user, req.Code)
	if err != nil {
		logger.Warn("two_factor_authentication_failed", map[string]interface{}{
			"user_id": user.ID.String(),
			"ip":      c.IP(),
		})
		return authError(c, err)
	}

	logger.InfoWithUser(user.ID.String(), "two_factor_authenticated", nil)

	c.Set(fiber.HeaderSetCookie, session.Cookie)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":    publicUser,
		"session": session,
	})
}
