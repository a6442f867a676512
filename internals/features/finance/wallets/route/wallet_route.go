package route

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/features/finance/wallets/controller"
)

func WalletAdminRoutes(admin fiber.Router, h *controller.Handler) {
	admin.Get("/students/:student_id/wallet", h.GetByStudent)

	g := admin.Group("/wallets")
	g.Post("/", h.Create)
	g.Get("/:id", h.Get)
	g.Patch("/:id/status", h.SetStatus)
	g.Post("/:id/topup", h.Topup)
	g.Post("/:id/withdraw", h.Withdraw)
	g.Post("/:id/purchase", h.Purchase)
	g.Post("/:id/refund", h.Refund)
	g.Get("/:id/transactions", h.History)
	g.Get("/:id/statement", h.Statement)
}

// WalletUserRoutes is read-only; money only moves through the admin surface.
func WalletUserRoutes(user fiber.Router, h *controller.Handler) {
	user.Get("/students/:student_id/wallet", h.GetByStudent)
	g := user.Group("/wallets")
	g.Get("/:id", h.Get)
	g.Get("/:id/transactions", h.History)
	g.Get("/:id/statement", h.Statement)
}
