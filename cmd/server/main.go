package main

import (
	"fmt"
	"log"
	"time"

	"github.com/authgate/backend/internal/auth"
	"github.com/authgate/backend/internal/config"
	"github.com/authgate/backend/internal/database"
	"github.com/authgate/backend/internal/handlers"
	"github.com/authgate/backend/internal/middleware"
	"github.com/authgate/backend/internal/services"
	"github.com/authgate/backend/internal/store"
	"github.com/authgate/backend/internal/token"
	"github.com/authgate/backend/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	logger.Init()

	cfg := config.Load()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}

	userStore := store.NewGormUserStore(db)
	hasher := auth.NewPasswordHasher(cfg.Password.BcryptCost)
	totpProvider := auth.NewTOTPProvider(cfg.TwoFactor.Issuer)
	issuer := token.NewIssuer(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpirationSeconds)*time.Second)

	authService := services.NewAuthService(userStore, hasher, totpProvider, issuer)

	authHandler := handlers.NewAuthHandler(authService)
	twoFactorHandler := handlers.NewTwoFactorHandler(authService)
	authMiddleware := middleware.NewAuthMiddleware(userStore, issuer)

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.CORS())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Post("/logout", authHandler.Logout)
	authRoutes.Delete("/unregister", authHandler.Unregister)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	twoFactorRoutes := authRoutes.Group("/2fa")
	twoFactorRoutes.Post("/setup", authMiddleware.RequireAuth, twoFactorHandler.Setup)
	twoFactorRoutes.Post("/confirm", authMiddleware.RequireAuth, twoFactorHandler.Confirm)
	twoFactorRoutes.Post("/authenticate", authMiddleware.RequireFirstFactor, twoFactorHandler.Authenticate)

	if err := app.Listen(fmt.Sprintf(":%s", cfg.Server.Port)); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
