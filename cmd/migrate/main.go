package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/liamcoop/churn/internal/config"
	"github.com/liamcoop/churn/internal/logger"
	"github.com/liamcoop/churn/migrations"
	"github.com/liamcoop/churn/prediction"
)

func main() {
	var databaseURL string
	var command string
	var logLevel string

	flag.StringVar(&databaseURL, "database", "", "Database URL: postgres://... or sqlite://<path>")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, version, force")
	flag.StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	log := logger.NewStructured(logLevel, "console")

	if err := run(databaseURL, command, flag.Args(), log); err != nil {
		log.WithError(err).Fatal("migration failed", map[string]interface{}{"command": command})
	}
}

// resolveDatabaseURL prefers the flag, then DATABASE_URL, then the default
// SQLite file under the configured data directory.
func resolveDatabaseURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("DATABASE_URL"); env != "" {
		return env
	}
	if cfg, err := config.Load(); err == nil {
		return cfg.Database.URL
	}
	return ""
}

func run(databaseURL, command string, args []string, log logger.Logger) error {
	databaseURL = resolveDatabaseURL(databaseURL)
	if databaseURL == "" {
		return errors.New("database URL is required: use -database or DATABASE_URL")
	}

	db, dialect, err := prediction.OpenDatabase(databaseURL)
	if err != nil {
		return err
	}

	log.Info("connecting to database", map[string]interface{}{"dialect": string(dialect)})

	// Closing the migrator closes db.
	m, err := migrations.New(db, string(dialect))
	if err != nil {
		db.Close()
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		log.Info("running migrations up", nil)
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to run (database is up to date)", nil)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		log.Info("migrations completed successfully", nil)

	case "down":
		log.Info("rolling back migrations", nil)
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("failed to rollback migrations: %w", err)
		}
		log.Info("rollback completed successfully", nil)

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info("no migrations applied yet", nil)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		log.Info("current version", map[string]interface{}{"version": version, "dirty": dirty})

	case "force":
		if len(args) < 1 {
			return errors.New("force command requires a version number: -command force <version>")
		}
		var version int
		if _, err := fmt.Sscanf(args[0], "%d", &version); err != nil {
			return fmt.Errorf("invalid version number: %w", err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
		log.Info("forced version", map[string]interface{}{"version": version})

	default:
		return fmt.Errorf("unknown command: %s (use: up, down, version, force)", command)
	}

	return nil
}
