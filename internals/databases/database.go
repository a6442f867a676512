package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"feeledger_backend/internals/configs"
	"feeledger_backend/internals/logger"
)

// ConnectDB opens the postgres pool described by cfg.
func ConnectDB(cfg *configs.Config) (*gorm.DB, error) {
	log := logger.WithComponent("database")
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connecting to PostgreSQL")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // PgBouncer transaction pooling
	}), &gorm.Config{Logger: configs.NewGormLogger()})
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	log.Info().Msg("database connected")
	return db, nil
}

func TunePool(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		lg := logger.WithComponent("database")
		lg.Warn().Err(err).Msg("pool tune skipped")
		return
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxIdleTime(60 * time.Second)
	sqlDB.SetConnMaxLifetime(10 * time.Minute)
}

// WarmUp pings in the background so the first request finds an open connection.
func WarmUp(db *gorm.DB) {
	go func() {
		time.Sleep(500 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := Ping(ctx, db); err != nil {
			lg := logger.WithComponent("database")
			lg.Warn().Err(err).Msg("warm-up ping failed")
		}
	}()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
