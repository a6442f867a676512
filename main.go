package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/etag"
	"github.com/robfig/cron/v3"

	"feeledger_backend/internals/configs"
	database "feeledger_backend/internals/databases"
	inmemdb "feeledger_backend/internals/databases/inmem"
	"feeledger_backend/internals/features/finance/schedules/scheduler"
	"feeledger_backend/internals/logger"
	middlewares "feeledger_backend/internals/middlewares"
	httpLogger "feeledger_backend/internals/middlewares/logger"
	routes "feeledger_backend/internals/route"
	"feeledger_backend/internals/seeds"
)

func main() {
	configs.LoadEnv()

	cfg, err := configs.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	lg := logger.WithComponent("main")

	app := fiber.New(fiber.Config{
		JSONEncoder:             sonic.Marshal,
		JSONDecoder:             sonic.Unmarshal,
		DisableStartupMessage:   true,
		ProxyHeader:             fiber.HeaderXForwardedFor,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          []string{"0.0.0.0/0"},
	})

	app.Use(middlewares.RecoveryMiddleware())
	app.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	app.Use(etag.New())

	app.Use(middlewares.RequestContext(5 * time.Second))
	app.Use(middlewares.CorsMiddleware(cfg.CORSOrigins))
	app.Use(httpLogger.LoggerMiddleware(cfg.Timezone))
	app.Use(middlewares.GlobalRateLimiter())

	var (
		svc     *routes.Services
		closeDB = func() {}
	)
	if cfg.DBDriver == "memory" {
		mem := inmemdb.Open()
		if _, err := seeds.RunMemorySeeds(context.Background(), mem); err != nil {
			lg.Fatal().Err(err).Msg("seed in-memory store")
		}
		svc = routes.NewMemoryServices(mem, cfg, nil)
		lg.Warn().Msg("DB_DRIVER=memory: data is lost on restart")
	} else {
		db, err := database.ConnectDB(cfg)
		if err != nil {
			lg.Fatal().Err(err).Msg("database connect")
		}
		database.TunePool(db)
		database.WarmUp(db)
		svc = routes.NewGormServices(db, cfg)
		closeDB = func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
	}

	var sweeper *cron.Cron
	if cfg.OverdueCron != "" {
		sweeper, err = scheduler.StartOverdueCron(cfg.OverdueCron, cfg.Location(), svc.Schedules)
		if err != nil {
			lg.Fatal().Err(err).Msg("overdue cron")
		}
	}

	routes.SetupRoutes(app, svc, cfg)

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	port := cfg.Port
	if port == "" {
		port = "3000"
	}

	go func() {
		lg.Info().Str("port", port).Str("driver", cfg.DBDriver).Msg("listening")
		if err := app.Listen("0.0.0.0:" + port); err != nil {
			lg.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info().Msg("shutting down")

	if sweeper != nil {
		<-sweeper.Stop().Done()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(ctx)
	closeDB()
}
