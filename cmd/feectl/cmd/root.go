// Package cmd holds the feectl subcommands: schema migrations, sample data
// and the maintenance jobs the API server otherwise runs on its own.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"feeledger_backend/internals/configs"
	database "feeledger_backend/internals/databases"
	"feeledger_backend/internals/logger"
)

var version = "1.0.0"

// cfg is set by Execute; nil when the environment could not be loaded.
var cfg *configs.Config

var rootCmd = &cobra.Command{
	Use:   "feectl",
	Short: "feectl - maintenance CLI for the fee ledger",
	Long: `feectl manages the fee ledger database outside the API server.

It reads the same environment as the server (DB_*, TIMEZONE, DEFAULT_CURRENCY)
and talks to postgres directly.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute(c *configs.Config) {
	cfg = c
	log := logger.WithComponent("cmd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func requireConfig() (*configs.Config, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded; check DB_* and JWT_SECRET")
	}
	return cfg, nil
}

// openDB connects to postgres; the caller closes the returned pool.
func openDB() (*gorm.DB, func(), error) {
	c, err := requireConfig()
	if err != nil {
		return nil, nil, err
	}
	if c.DBDriver == "memory" {
		return nil, nil, errors.New("feectl needs DB_DRIVER=postgres")
	}
	db, err := database.ConnectDB(c)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, closeFn, nil
}
