package handlers

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pquerna/otp/totp"
)

func TestTwoFactorSetupAndConfirm(t *testing.T) {
	env := setupTestEnv(t)
	_, sessionToken := env.registerUser(t, "a@x.com", "Secret123")

	t.Run("setup requires a full session", func(t *testing.T) {
		resp, _ := env.request(t, http.MethodPost, "/api/auth/2fa/setup", "", nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	var secret string

	t.Run("setup returns the secret and provisioning URI", func(t *testing.T) {
		resp, body := env.request(t, http.MethodPost, "/api/auth/2fa/setup", sessionToken, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body.Error)
		}
		var data struct {
			Secret string `json:"secret"`
			QRUri  string `json:"qrUri"`
		}
		decodeData(t, body.Data, &data)
		if data.Secret == "" || !strings.HasPrefix(data.QRUri, "otpauth://totp/") {
			t.Fatalf("unexpected enrollment payload %+v", data)
		}
		secret = data.Secret
	})

	t.Run("confirm rejects a wrong code", func(t *testing.T) {
		resp, _ := env.request(t, http.MethodPost, "/api/auth/2fa/confirm", sessionToken, fiber.Map{
			"code": "000000",
		})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("confirm enables the second factor with a valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now())
		if err != nil {
			t.Fatalf("failed generating code for test: %v", err)
		}
		resp, body := env.request(t, http.MethodPost, "/api/auth/2fa/confirm", sessionToken, fiber.Map{
			"code": code,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body.Error)
		}
	})

	t.Run("login now returns the two-factor marker instead of a session", func(t *testing.T) {
		resp, body := env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
			"email":    "a@x.com",
			"password": "Secret123",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body.Error)
		}
		var data struct {
			TwoFactorRequired bool   `json:"twoFactorRequired"`
			ChallengeToken    string `json:"challengeToken"`
		}
		decodeData(t, body.Data, &data)
		if !data.TwoFactorRequired || data.ChallengeToken == "" {
			t.Fatalf("expected the two-factor marker with a challenge token, got %+v", data)
		}
		if strings.Contains(string(body.Data), "\"session\"") {
			t.Fatal("no session may be returned before the second factor")
		}
	})
}

func TestTwoFactorAuthenticate(t *testing.T) {
	env := setupTestEnv(t)
	_, sessionToken := env.registerUser(t, "a@x.com", "Secret123")

	// Enable the second factor through the public endpoints.
	_, body := env.request(t, http.MethodPost, "/api/auth/2fa/setup", sessionToken, nil)
	var enrollment struct {
		Secret string `json:"secret"`
	}
	decodeData(t, body.Data, &enrollment)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	if err != nil {
		t.Fatalf("failed generating code for test: %v", err)
	}
	if resp, confirmBody := env.request(t, http.MethodPost, "/api/auth/2fa/confirm", sessionToken, fiber.Map{"code": code}); resp.StatusCode != http.StatusOK {
		t.Fatalf("failed enabling second factor: %d (%s)", resp.StatusCode, confirmBody.Error)
	}

	loginResp, loginBody := env.request(t, http.MethodPost, "/api/auth/login", "", fiber.Map{
		"email":    "a@x.com",
		"password": "Secret123",
	})
	if loginResp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", loginResp.StatusCode)
	}
	var marker struct {
		ChallengeToken string `json:"challengeToken"`
	}
	decodeData(t, loginBody.Data, &marker)

	t.Run("the challenge token does not open protected routes", func(t *testing.T) {
		resp, _ := env.request(t, http.MethodGet, "/api/auth/me", marker.ChallengeToken, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for a challenge token on /me, got %d", resp.StatusCode)
		}
	})

	t.Run("a session token is not accepted as a challenge", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		if err != nil {
			t.Fatalf("failed generating code for test: %v", err)
		}
		resp, _ := env.request(t, http.MethodPost, "/api/auth/2fa/authenticate", sessionToken, fiber.Map{"code": code})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401 for a session token on authenticate, got %d", resp.StatusCode)
		}
	})

	t.Run("rejects a wrong code", func(t *testing.T) {
		resp, _ := env.request(t, http.MethodPost, "/api/auth/2fa/authenticate", marker.ChallengeToken, fiber.Map{
			"code": "000000",
		})
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})

	t.Run("a valid code completes the login with a full session", func(t *testing.T) {
		code, err := totp.GenerateCode(enrollment.Secret, time.Now())
		if err != nil {
			t.Fatalf("failed generating code for test: %v", err)
		}
		resp, body := env.request(t, http.MethodPost, "/api/auth/2fa/authenticate", marker.ChallengeToken, fiber.Map{
			"code": code,
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body.Error)
		}

		var data struct {
			Session struct {
				Token string `json:"token"`
			} `json:"session"`
		}
		decodeData(t, body.Data, &data)

		claims, err := env.issuer.Validate(data.Session.Token)
		if err != nil {
			t.Fatalf("expected the issued session to validate, got error: %v", err)
		}
		if !claims.SecondFactorSatisfied {
			t.Fatal("expected secondFactorSatisfied=true on the completed session")
		}

		meResp, _ := env.request(t, http.MethodGet, "/api/auth/me", data.Session.Token, nil)
		if meResp.StatusCode != http.StatusOK {
			t.Fatalf("expected the completed session to open /me, got %d", meResp.StatusCode)
		}
	})
}
