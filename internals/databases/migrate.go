package database

import (
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/pkg/errors"

	"feeledger_backend/internals/configs"
	"feeledger_backend/internals/databases/migrations"
	"feeledger_backend/internals/logger"
)

func newMigrate(cfg *configs.Config) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, errors.Wrap(err, "open embedded migrations")
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.MigrateURL())
	if err != nil {
		return nil, errors.Wrap(err, "create migrator")
	}
	return m, nil
}

// MigrateUp applies every pending migration.
func MigrateUp(cfg *configs.Config) error {
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer m.Close()

	log := logger.WithComponent("migrate")
	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("schema is up to date")
			return nil
		}
		return errors.Wrap(err, "migrate up")
	}
	v, _, _ := m.Version()
	log.Info().Uint("version", v).Msg("migrations applied")
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(cfg *configs.Config, steps int) error {
	if steps <= 0 {
		return errors.New("steps must be positive")
	}
	m, err := newMigrate(cfg)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate down")
	}
	return nil
}

// MigrationVersion reports the applied version and whether it is dirty.
func MigrationVersion(cfg *configs.Config) (uint, bool, error) {
	m, err := newMigrate(cfg)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}
