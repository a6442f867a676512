package middlewares

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	helper "feeledger_backend/internals/helpers"
)

func newLimiter(max int, window time.Duration, message string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return helper.JsonError(c, fiber.StatusTooManyRequests, message)
		},
	})
}

// GlobalRateLimiter covers the authenticated API.
func GlobalRateLimiter() fiber.Handler {
	return newLimiter(100, time.Minute, "too many requests, please try again later")
}

// PaymentRateLimiter is stricter and guards the endpoints that move money.
func PaymentRateLimiter() fiber.Handler {
	return newLimiter(20, time.Minute, "too many payment attempts, please wait a moment")
}

// NotificationRateLimiter guards the public gateway callback.
func NotificationRateLimiter() fiber.Handler {
	return newLimiter(300, time.Minute, "too many notifications")
}
