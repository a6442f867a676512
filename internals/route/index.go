// file: internals/route/index.go
package routes

import (
	"github.com/gofiber/fiber/v2"

	"feeledger_backend/internals/configs"
	"feeledger_backend/internals/constants"
	"feeledger_backend/internals/logger"
	authMiddleware "feeledger_backend/internals/middlewares/auth"
	routeDetails "feeledger_backend/internals/route/details"
)

// SetupRoutes mounts the public, user (/api/u) and admin (/api/a) groups.
func SetupRoutes(app *fiber.App, svc *Services, cfg *configs.Config) {
	log := logger.WithComponent("routes")
	BaseRoutes(app, svc)

	h := routeDetails.NewFinanceHandlers(svc.Fees, svc.Resolver, svc.Schedules, svc.Payments, svc.Wallets, svc.Gateway)

	log.Info().Msg("mounting public group")
	public := app.Group("/api/public")
	routeDetails.FinancePublicRoutes(public, h)

	log.Info().Msg("mounting user group")
	user := app.Group("/api/u", authMiddleware.AuthJWT(cfg.JWTSecret))
	routeDetails.FinanceUserRoutes(user, h)

	log.Info().Msg("mounting admin group")
	admin := app.Group("/api/a",
		authMiddleware.AuthJWT(cfg.JWTSecret),
		authMiddleware.OnlyRoles(constants.RoleErrorFinanceStaff("the admin API"), constants.FinanceStaffRoles...),
	)
	routeDetails.FinanceAdminRoutes(admin, h)
}
