package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/cristianortiz/evauction/internal/shared/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

var log = logger.GetLogger() // package logger

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// RunPostgres applies the embedded Postgres migrations against dsn.
func RunPostgres(dsn string) error {
	log.Info("Running postgres migrations")
	src, err := iofs.New(files, "postgres")
	if err != nil {
		return fmt.Errorf("load postgres migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("init postgres migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()
	return up(m, "postgres")
}

// RunSQLite applies the embedded SQLite migrations on an open handle.
func RunSQLite(sqlDB *sql.DB) error {
	log.Info("Running sqlite migrations")
	src, err := iofs.New(files, "sqlite")
	if err != nil {
		return fmt.Errorf("load sqlite migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(sqlDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("init sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init sqlite migrations: %w", err)
	}
	return up(m, "sqlite")
}

func up(m *migrate.Migrate, backend string) error {
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply %s migrations: %w", backend, err)
	}
	version, dirty, err := m.Version()
	if err == nil {
		log.Info("Database migrations completed",
			zap.String("backend", backend),
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	}
	return nil
}
