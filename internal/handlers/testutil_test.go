package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/authgate/backend/internal/auth"
	"github.com/authgate/backend/internal/middleware"
	"github.com/authgate/backend/internal/models"
	"github.com/authgate/backend/internal/services"
	"github.com/authgate/backend/internal/store"
	"github.com/authgate/backend/internal/token"
	"github.com/authgate/backend/pkg/logger"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	store  store.UserStore
	issuer *token.Issuer
}

var testSetupOnce sync.Once

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testSetupOnce.Do(func() {
		logger.Init()
	})

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	userStore := store.NewGormUserStore(db)
	issuer := token.NewIssuer("test-secret", time.Hour)
	authService := services.NewAuthService(
		userStore,
		auth.NewPasswordHasher(bcrypt.MinCost),
		auth.NewTOTPProvider("AuthGate"),
		issuer,
	)

	authHandler := NewAuthHandler(authService)
	twoFactorHandler := NewTwoFactorHandler(authService)
	authMiddleware := middleware.NewAuthMiddleware(userStore, issuer)

	app := fiber.New()
	app.Use(recover.New())

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

	return &testEnv{app: app, db: db, store: userStore, issuer: issuer}
}

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (e *testEnv) request(t *testing.T, method, path, bearer string, body interface{}) (*http.Response, *apiResponse) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed encoding request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := e.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}
	_ = resp.Body.Close()

	var parsed apiResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("failed decoding response %q: %v", payload, err)
	}
	return resp, &parsed
}

func decodeData(t *testing.T, raw json.RawMessage, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, target); err != nil {
		t.Fatalf("failed decoding data %q: %v", raw, err)
	}
}

func (e *testEnv) registerUser(t *testing.T, email, password string) (userID string, sessionToken string) {
	t.Helper()

	resp, body := e.request(t, http.MethodPost, "/api/auth/register", "", fiber.Map{
		"email":     email,
		"password":  password,
		"firstName": "Ann",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected registration to return 201, got %d (%s)", resp.StatusCode, body.Error)
	}

	var data struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
		Session struct {
			Token string `json:"token"`
		} `json:"session"`
	}
	decodeData(t, body.Data, &data)
	return data.User.ID, data.Session.Token
}
