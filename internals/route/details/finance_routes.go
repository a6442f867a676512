// file: internals/route/details/finance_routes.go
package details

import (
	"github.com/gofiber/fiber/v2"

	feeController "feeledger_backend/internals/features/finance/fees/controller"
	feeRoute "feeledger_backend/internals/features/finance/fees/route"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	gatewayController "feeledger_backend/internals/features/finance/gateway/controller"
	gatewayRoute "feeledger_backend/internals/features/finance/gateway/route"
	gatewayService "feeledger_backend/internals/features/finance/gateway/service"
	scheduleController "feeledger_backend/internals/features/finance/schedules/controller"
	scheduleRoute "feeledger_backend/internals/features/finance/schedules/route"
	scheduleService "feeledger_backend/internals/features/finance/schedules/service"
	trxController "feeledger_backend/internals/features/finance/transactions/controller"
	trxRoute "feeledger_backend/internals/features/finance/transactions/route"
	trxService "feeledger_backend/internals/features/finance/transactions/service"
	walletController "feeledger_backend/internals/features/finance/wallets/controller"
	walletRoute "feeledger_backend/internals/features/finance/wallets/route"
	walletService "feeledger_backend/internals/features/finance/wallets/service"
	"feeledger_backend/internals/middlewares"
)

type FinanceHandlers struct {
	Fees         *feeController.Handler
	Schedules    *scheduleController.Handler
	Transactions *trxController.Handler
	Wallets      *walletController.Handler
	Gateway      *gatewayController.Handler
}

func NewFinanceHandlers(
	fees *feeService.FeeService,
	resolver *feeService.Resolver,
	schedules *scheduleService.Builder,
	payments *trxService.PaymentLedger,
	wallets *walletService.Ledger,
	gateway *gatewayService.Gateway,
) *FinanceHandlers {
	return &FinanceHandlers{
		Fees:         feeController.NewHandler(fees, resolver),
		Schedules:    scheduleController.NewHandler(schedules),
		Transactions: trxController.NewHandler(payments),
		Wallets:      walletController.NewHandler(wallets),
		Gateway:      gatewayController.NewHandler(gateway),
	}
}

func FinancePublicRoutes(r fiber.Router, h *FinanceHandlers) {
	gatewayRoute.GatewayPublicRoutes(r, h.Gateway, middlewares.NotificationRateLimiter())
}

func FinanceUserRoutes(r fiber.Router, h *FinanceHandlers) {
	feeRoute.FeeUserRoutes(r, h.Fees)
	scheduleRoute.ScheduleUserRoutes(r, h.Schedules)
	trxRoute.TransactionUserRoutes(r, h.Transactions)
	walletRoute.WalletUserRoutes(r, h.Wallets)
	gatewayRoute.GatewayUserRoutes(r, h.Gateway, middlewares.PaymentRateLimiter())
}

func FinanceAdminRoutes(r fiber.Router, h *FinanceHandlers) {
	feeRoute.FeeAdminRoutes(r, h.Fees)
	scheduleRoute.ScheduleAdminRoutes(r, h.Schedules)
	trxRoute.TransactionAdminRoutes(r, h.Transactions)
	walletRoute.WalletAdminRoutes(r, h.Wallets)
	gatewayRoute.GatewayAdminRoutes(r, h.Gateway)
}
