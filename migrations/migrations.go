// Package migrations embeds the SQL schema of the churn platform, one
// directory per database dialect.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// New returns a migrator for db. dialect is "postgres" or "sqlite".
// Closing the migrator also closes db.
func New(db *sql.DB, dialect string) (*migrate.Migrate, error) {
	src, err := iofs.New(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("load %s migrations: %w", dialect, err)
	}

	var driver database.Driver
	switch dialect {
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	case "sqlite":
		driver, err = sqlite.WithInstance(db, &sqlite.Config{})
	default:
		return nil, fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s migration driver: %w", dialect, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dialect, driver)
	if err != nil {
		return nil, fmt.Errorf("create migration instance: %w", err)
	}
	return m, nil
}

// Up applies all pending migrations. db stays open.
func Up(db *sql.DB, dialect string) error {
	m, err := New(db, dialect)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
