package route

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/fees/controller"
)

// FeeAdminRoutes mounts definition/assignment CRUD and the resolver for staff.
func FeeAdminRoutes(admin fiber.Router, h *controller.Handler) {
	defs := admin.Group("/fee-definitions")
	defs.Post("/", h.CreateDefinition)
	defs.Get("/", h.ListDefinitions)
	defs.Get("/:id", h.GetDefinition)
	defs.Put("/:id", h.UpdateDefinition)

	asg := admin.Group("/fee-assignments")
	asg.Post("/", h.CreateAssignment)
	asg.Get("/", h.ListAssignments)
	asg.Delete("/:id", h.DeleteAssignment)

	admin.Get("/students/:id/applicable-fees", h.ApplicableFees)
}

// FeeUserRoutes: read-only resolver for signed-in users.
func FeeUserRoutes(user fiber.Router, h *controller.Handler) {
	user.Get("/students/:id/applicable-fees", h.ApplicableFees)
}
