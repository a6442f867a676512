package routes

import (
	"context"
	"time"

	"gorm.io/gorm"

	"feeledger_backend/internals/configs"
	database "feeledger_backend/internals/databases"
	inmemdb "feeledger_backend/internals/databases/inmem"
	feeService "feeledger_backend/internals/features/finance/fees/service"
	gatewayService "feeledger_backend/internals/features/finance/gateway/service"
	scheduleService "feeledger_backend/internals/features/finance/schedules/service"
	trxService "feeledger_backend/internals/features/finance/transactions/service"
	walletService "feeledger_backend/internals/features/finance/wallets/service"
)

// Services is the wired application: one instance of every finance service
// sharing a single backing store.
type Services struct {
	Fees      *feeService.FeeService
	Resolver  *feeService.Resolver
	Schedules *scheduleService.Builder
	Payments  *trxService.PaymentLedger
	Wallets   *walletService.Ledger
	Gateway   *gatewayService.Gateway

	// Ping reports whether the backing store is reachable.
	Ping func(ctx context.Context) error
}

type stores struct {
	fees      feeService.Store
	schedules scheduleService.Store
	payments  trxService.Store
	wallets   walletService.Store
	gateway   gatewayService.Store
}

// NewGormServices wires every service to postgres.
func NewGormServices(db *gorm.DB, cfg *configs.Config) *Services {
	svc := build(cfg, stores{
		fees:      feeService.NewGormStore(db),
		schedules: scheduleService.NewGormStore(db),
		payments:  trxService.NewGormStore(db),
		wallets:   walletService.NewGormStore(db),
		gateway:   gatewayService.NewGormStore(db),
	}, gatewayService.NewSnapClient(cfg.MidtransServerKey, cfg.MidtransProduction))
	svc.Ping = func(ctx context.Context) error { return database.Ping(ctx, db) }
	return svc
}

// NewMemoryServices wires every service to the in-memory database, for local
// demos and HTTP tests. snap may be nil to use the real sandbox client.
func NewMemoryServices(db *inmemdb.DB, cfg *configs.Config, snap gatewayService.SnapClient) *Services {
	if snap == nil {
		snap = gatewayService.NewSnapClient(cfg.MidtransServerKey, cfg.MidtransProduction)
	}
	svc := build(cfg, stores{
		fees:      feeService.NewMemoryStore(db),
		schedules: scheduleService.NewMemoryStore(db),
		payments:  trxService.NewMemoryStore(db),
		wallets:   walletService.NewMemoryStore(db),
		gateway:   gatewayService.NewMemoryStore(db),
	}, snap)
	svc.Ping = func(context.Context) error { return nil }
	return svc
}

func build(cfg *configs.Config, st stores, snap gatewayService.SnapClient) *Services {
	loc := cfg.Location()
	payments := trxService.NewPaymentLedger(st.payments, trxService.Options{Location: loc, Now: time.Now})
	return &Services{
		Fees:     feeService.NewFeeService(st.fees),
		Resolver: feeService.NewResolver(st.fees, cfg.DefaultCurrency),
		Schedules: scheduleService.NewBuilder(st.schedules, scheduleService.Options{
			DefaultCurrency: cfg.DefaultCurrency,
			Location:        loc,
		}),
		Payments: payments,
		Wallets: walletService.NewLedger(st.wallets, walletService.Options{
			DefaultCurrency: cfg.DefaultCurrency,
			Location:        loc,
		}),
		Gateway: gatewayService.NewGateway(st.gateway, payments, snap, gatewayService.Options{ServerKey: cfg.MidtransServerKey}),
	}
}
