package helper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"feeledger_backend/internals/helpers/apperror"
)

// GetUserIDFromToken reads the caller id that AuthJWT stored under "user_id".
func GetUserIDFromToken(c *fiber.Ctx) (uuid.UUID, error) {
	var raw string
	switch v := c.Locals("user_id").(type) {
	case uuid.UUID:
		if v != uuid.Nil {
			return v, nil
		}
	case string:
		raw = strings.TrimSpace(v)
	}
	if raw == "" {
		return uuid.Nil, apperror.InvalidInput("token carries no user id")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperror.InvalidInput("user id in token is not a UUID")
	}
	return id, nil
}
