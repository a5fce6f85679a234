package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// RunMigrations applies pending migrations from migrationsPath. Calling it
// against an up-to-date database is a no-op, so it runs unconditionally at
// boot.
func RunMigrations(db *sql.DB, migrationsPath string, logger *zap.Logger) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("open migration source %q: %w", migrationsPath, err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("closing migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("closing migration db handle", zap.Error(dbErr))
		}
	}()

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	if dirty {
		// A dirty version means a previous run died mid-migration. Refuse to
		// proceed rather than guess which half got applied.
		return fmt.Errorf("database is dirty at migration version %d, resolve manually before restarting", before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("schema up to date", zap.Uint("version", before))
			return nil
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	after, _, _ := m.Version()
	logger.Info("migrations applied", zap.Uint("from", before), zap.Uint("to", after))
	return nil
}
