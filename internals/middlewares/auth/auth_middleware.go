// internals/middlewares/auth/auth_middleware.go
package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	helper "feeledger_backend/internals/helpers"
	"feeledger_backend/internals/logger"
)

// Locals keys set by AuthJWT.
const (
	LocalUserID   = "user_id"
	LocalUserRole = "userRole"
	LocalUserName = "user_name"
)

// AuthJWT verifies an HS256 access token from the Authorization header (or the
// access_token cookie) and stores the caller's id, role and name in Locals.
// Identity itself is issued elsewhere.
func AuthJWT(secret string) fiber.Handler {
	log := logger.WithComponent("auth")
	return func(c *fiber.Ctx) error {
		tokenString, err := extractBearerToken(c)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, err.Error())
		}
		if secret == "" {
			log.Error().Msg("JWT secret is empty")
			return helper.JsonError(c, fiber.StatusInternalServerError, "missing JWT secret")
		}

		claims := jwt.MapClaims{}
		parser := jwt.Parser{SkipClaimsValidation: true, ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
		if _, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}); err != nil {
			log.Debug().Err(err).Msg("token parse failed")
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized - token parse error")
		}
		if err := validateTokenExpiry(claims, 30*time.Second, time.Now()); err != nil {
			log.Debug().Err(err).Msg("token rejected")
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized - token expired")
		}

		userID, err := extractUserID(claims)
		if err != nil {
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized - invalid or missing user id")
		}
		c.Locals(LocalUserID, userID.String())
		storeBasicClaimsToLocals(c, claims)
		return c.Next()
	}
}
