// middlewares/cors.go

package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://127.0.0.1:5500",
}

// CorsMiddleware allows the given comma-separated origins, or the local dev
// origins when none are configured.
func CorsMiddleware(origins string) fiber.Handler {
	if strings.TrimSpace(origins) == "" {
		origins = strings.Join(defaultOrigins, ", ")
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key, X-Request-ID",
		ExposeHeaders:    "X-Request-ID",
		AllowCredentials: true,
	})
}
