package middlewares

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"feeledger_backend/internals/logger"
)

// RecoveryMiddleware turns a panic into a 500 and logs it.
func RecoveryMiddleware() fiber.Handler {
	return recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			reqID, _ := c.Locals("reqid").(string)
			lg := logger.WithRequestID(reqID)
			lg.Error().Interface("panic", e).Str("path", c.Path()).Msg("recovered from panic")
		},
	})
}
