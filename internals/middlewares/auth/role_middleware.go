package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	helper "feeledger_backend/internals/helpers"
)

// RoleMiddlewareWithCustomError lets the request through when the caller's
// role is one of allowedRoles.
func RoleMiddlewareWithCustomError(allowedRoles []string, customForbiddenMessage string) fiber.Handler {
	if customForbiddenMessage == "" {
		customForbiddenMessage = "forbidden: you are not authorized to access this resource"
	}
	return func(c *fiber.Ctx) error {
		role, ok := c.Locals(LocalUserRole).(string)
		if !ok || role == "" {
			return helper.JsonError(c, fiber.StatusUnauthorized, "unauthorized: missing role information")
		}
		if lo.Contains(allowedRoles, role) {
			return c.Next()
		}
		return helper.JsonError(c, fiber.StatusForbidden, customForbiddenMessage)
	}
}

func OnlyRoles(customMessage string, roles ...string) fiber.Handler {
	return RoleMiddlewareWithCustomError(roles, customMessage)
}
