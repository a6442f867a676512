package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

var startTime = time.Now()

func BaseRoutes(app *fiber.App, svc *Services) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("feeledger is running")
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		dbStatus, serverStatus, httpStatus := "connected", "OK", fiber.StatusOK
		if err := svc.Ping(ctx); err != nil {
			dbStatus, serverStatus, httpStatus = "database connection error", "DOWN", fiber.StatusServiceUnavailable
		}
		return c.Status(httpStatus).JSON(fiber.Map{
			"status":         serverStatus,
			"database":       dbStatus,
			"server_time":    time.Now().Format(time.RFC3339),
			"uptime_seconds": int(time.Since(startTime).Seconds()),
		})
	})
}
