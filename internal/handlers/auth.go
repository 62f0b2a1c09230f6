package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/authgate/backend/internal/auth"
	"github.com/authgate/backend/internal/middleware"
	"github.com/authgate/backend/internal/services"
	"github.com/authgate/backend/pkg/logger"
	"github.com/authgate/backend/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	Auth *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{Auth: authService}
}

type registerRequest struct {
	Email       string     `json:"email"`
	Password    string     `json:"password"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	DateOfBirth *time.Time `json:"dateOfBirth"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	user, session, err := h.Auth.Register(c.Context(), services.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		DateOfBirth: req.DateOfBirth,
	})
	if err != nil {
		return authError(c, err)
	}

	logger.Info("user_registered", map[string]interface{}{
		"user_id": user.ID.String(),
	})

	c.Set(fiber.HeaderSetCookie, session.Cookie)
	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"user":    user,
		"session": session,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	result, err := h.Auth.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		logger.Warn("login_failed", map[string]interface{}{
			"ip": c.IP(),
		})
		return authError(c, err)
	}

	if result.TwoFactorRequired {
		c.Set(fiber.HeaderSetCookie, result.ChallengeCookie)
		return utils.Success(c, fiber.StatusOK, fiber.Map{
			"twoFactorRequired": true,
			"challengeToken":    result.ChallengeToken,
		})
	}

	logger.InfoWithUser(result.User.ID.String(), "user_logged_in", nil)

	c.Set(fiber.HeaderSetCookie, result.Session.Cookie)
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"user":    result.User,
		"session": result.Session,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session := h.Auth.Logout()
	c.Set(fiber.HeaderSetCookie, session.Cookie)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "logged out"})
}

type unregisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Unregister(c *fiber.Ctx) error {
	var req unregisterRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		return utils.Error(c, fiber.StatusBadRequest, "email and password are required")
	}

	if err := h.Auth.Unregister(c.Context(), req.Email, req.Password); err != nil {
		return authError(c, err)
	}

	logger.Info("user_unregistered", map[string]interface{}{
		"ip": c.IP(),
	})

	c.Set(fiber.HeaderSetCookie, h.Auth.Logout().Cookie)
	return utils.Success(c, fiber.StatusOK, fiber.Map{"message": "account deleted"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, user.Public())
}

func authError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, auth.ErrDuplicateAccount):
		return utils.Error(c, fiber.StatusConflict, "an account with that email already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidTwoFactorCode):
		return utils.Error(c, fiber.StatusUnauthorized, "invalid two-factor code")
	case errors.Is(err, auth.ErrStoreUnavailable):
		return utils.Error(c, fiber.StatusServiceUnavailable, "credential store unavailable")
	default:
		return utils.Error(c, fiber.StatusInternalServerError, "internal error")
	}
}
