package route

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/transactions/controller"
)

func TransactionAdminRoutes(admin fiber.Router, h *controller.Handler) {
	admin.Post("/payment-schedules/:id/payments", h.ProcessPayment)
	admin.Get("/payment-schedules/:id/transactions", h.ListBySchedule)
	admin.Get("/transactions/:number", h.GetByNumber)
}

func TransactionUserRoutes(user fiber.Router, h *controller.Handler) {
	user.Get("/payment-schedules/:id/transactions", h.ListBySchedule)
}
