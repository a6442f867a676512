package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeledger_backend/internals/constants"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func newApp() *fiber.App {
	app := fiber.New()
	app.Use(AuthJWT(secret))
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"id": c.Locals(LocalUserID), "role": c.Locals(LocalUserRole)})
	})
	admin := app.Group("/admin", OnlyRoles("", constants.FinanceStaffRoles...))
	admin.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	return app
}

func TestAuthJWT(t *testing.T) {
	app := newApp()
	id := uuid.NewString()
	exp := time.Now().Add(time.Hour).Unix()

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no token", "/me", "", fiber.StatusUnauthorized},
		{"not bearer", "/me", "Basic abc", fiber.StatusUnauthorized},
		{"valid", "/me", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id, "role": "parent", "exp": exp}), fiber.StatusOK},
		{"sub claim", "/me", "Bearer " + sign(t, secret, jwt.MapClaims{"sub": id, "exp": exp}), fiber.StatusOK},
		{"wrong key", "/me", "Bearer " + sign(t, "other", jwt.MapClaims{"id": id, "exp": exp}), fiber.StatusUnauthorized},
		{"expired", "/me", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id, "exp": time.Now().Add(-time.Hour).Unix()}), fiber.StatusUnauthorized},
		{"no exp", "/me", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id}), fiber.StatusUnauthorized},
		{"no user id", "/me", "Bearer " + sign(t, secret, jwt.MapClaims{"exp": exp}), fiber.StatusUnauthorized},
		{"admin role", "/admin/ping", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id, "role": "Admin", "exp": exp}), fiber.StatusOK},
		{"accountant role", "/admin/ping", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id, "role": "accountant", "exp": exp}), fiber.StatusOK},
		{"parent on admin", "/admin/ping", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id, "role": "parent", "exp": exp}), fiber.StatusForbidden},
		{"no role on admin", "/admin/ping", "Bearer " + sign(t, secret, jwt.MapClaims{"id": id, "exp": exp}), fiber.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestTokenFromCookie(t *testing.T) {
	app := newApp()
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", "access_token="+sign(t, secret, jwt.MapClaims{"id": uuid.NewString(), "exp": time.Now().Add(time.Minute).Unix()}))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestValidateTokenExpirySkew(t *testing.T) {
	now := time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC)
	exp := now.Add(-10 * time.Second).Unix()
	assert.NoError(t, validateTokenExpiry(jwt.MapClaims{"exp": float64(exp)}, 30*time.Second, now))
	assert.Error(t, validateTokenExpiry(jwt.MapClaims{"exp": float64(exp)}, 5*time.Second, now))
	assert.NoError(t, validateTokenExpiry(jwt.MapClaims{"exp": "1722513600"}, 0, now.Add(-time.Hour)))
	assert.Error(t, validateTokenExpiry(jwt.MapClaims{"exp": "soon"}, 0, now))
}
