package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// tableName is fixed by the embedded migrations.
const tableName = "news_items"

// MigrationVersion describes the schema state after a migration run.
type MigrationVersion struct {
	Version uint
	Dirty   bool
}

func migratePostgres(db *sql.DB) (MigrationVersion, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return MigrationVersion{}, fmt.Errorf("create postgres migration driver: %w", err)
	}
	return runMigrations(driver, "postgres", "migrations/postgres")
}

func migrateSQLite(db *sql.DB) (MigrationVersion, error) {
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return MigrationVersion{}, fmt.Errorf("create sqlite migration driver: %w", err)
	}
	return runMigrations(driver, "sqlite", "migrations/sqlite")
}

// runMigrations never closes the migrate instance: doing so would close the
// caller's *sql.DB through the driver.
func runMigrations(driver database.Driver, name, dir string) (MigrationVersion, error) {
	source, err := iofs.New(migrationFS, dir)
	if err != nil {
		return MigrationVersion{}, fmt.Errorf("open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, name, driver)
	if err != nil {
		return MigrationVersion{}, fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationVersion{}, fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return MigrationVersion{}, fmt.Errorf("read migration version: %w", err)
	}

	return MigrationVersion{Version: version, Dirty: dirty}, nil
}
