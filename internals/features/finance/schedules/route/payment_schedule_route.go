package route

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/schedules/controller"
)

func ScheduleAdminRoutes(admin fiber.Router, h *controller.Handler) {
	admin.Post("/enrollments/:id/payment-schedule", h.Build)
	admin.Post("/enrollments/:id/payment-schedule/preview", h.Preview)

	ps := admin.Group("/payment-schedules")
	ps.Get("/", h.List)
	ps.Post("/sweep-overdue", h.SweepOverdue)
	ps.Get("/:id", h.Get)
	ps.Delete("/:id", h.Delete)
	ps.Post("/:id/regenerate", h.Regenerate)
	ps.Post("/:id/activate", h.Activate)
	ps.Post("/:id/suspend", h.Suspend)
	ps.Post("/:id/resume", h.Resume)
	ps.Post("/:id/cancel", h.Cancel)
}

// ScheduleUserRoutes: read-only.
func ScheduleUserRoutes(user fiber.Router, h *controller.Handler) {
	ps := user.Group("/payment-schedules")
	ps.Get("/", h.List)
	ps.Get("/:id", h.Get)
}
