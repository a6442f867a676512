package route

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/gateway/controller"
)

func GatewayAdminRoutes(admin fiber.Router, h *controller.Handler) {
	admin.Get("/payment-schedules/:id/checkouts", h.ListBySchedule)
	admin.Get("/checkouts/:order_id", h.Get)
}

// GatewayUserRoutes mounts checkout behind limit, which throttles per caller.
func GatewayUserRoutes(user fiber.Router, h *controller.Handler, limit fiber.Handler) {
	user.Post("/payment-schedules/:id/checkout", limit, h.Checkout)
	user.Get("/checkouts/:order_id", h.Get)
}

// GatewayPublicRoutes carries the provider callback; it is authenticated by
// the notification signature, not by JWT.
func GatewayPublicRoutes(public fiber.Router, h *controller.Handler, limit fiber.Handler) {
	public.Post("/payments/midtrans/notification", limit, h.Notification)
}
