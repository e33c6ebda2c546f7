package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/mohamedkhairy/ad-autoscaler/internal/config"
	"github.com/mohamedkhairy/ad-autoscaler/pkg/logger"
)

func main() {
	var databaseURL string
	var migrationsPath string
	var command string

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL or the DB_* settings)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down, steps, version, force")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		databaseURL = cfg.Database.URL()
	}

	logger.Info("Connecting to database",
		logger.String("host", cfg.Database.Host),
		logger.String("migrations_path", migrationsPath),
		logger.String("command", command),
	)

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), databaseURL)
	if err != nil {
		logger.Fatal("Failed to create migration instance", logger.ErrorField(err))
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("No migrations to run (database is up to date)")
			return
		}
		if err != nil {
			logger.Fatal("Failed to run migrations", logger.ErrorField(err))
		}
		logger.Info("Migrations completed")

	case "down":
		err = m.Down()
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to roll back migrations", logger.ErrorField(err))
		}
		logger.Info("Rollback completed")

	case "steps":
		n, err := intArg("steps")
		if err != nil {
			logger.Fatal("Invalid step count", logger.ErrorField(err))
		}
		if err := m.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Failed to apply migration steps", logger.ErrorField(err))
		}
		logger.Info("Migration steps applied", logger.Int("steps", n))

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("No migration applied yet")
			return
		}
		if err != nil {
			logger.Fatal("Failed to get version", logger.ErrorField(err))
		}
		logger.Info("Current version",
			logger.Int("version", int(version)),
			logger.Bool("dirty", dirty),
		)

	case "force":
		version, err := intArg("force")
		if err != nil {
			logger.Fatal("Invalid version number", logger.ErrorField(err))
		}
		if err := m.Force(version); err != nil {
			logger.Fatal("Failed to force version", logger.ErrorField(err))
		}
		logger.Info("Forced version", logger.Int("version", version))

	default:
		logger.Fatal("Unknown command (use: up, down, steps, version, force)",
			logger.String("command", command),
		)
	}
}

// intArg reads the integer positional argument of a command
func intArg(command string) (int, error) {
	if flag.NArg() < 1 {
		return 0, fmt.Errorf("-command %s requires a number argument", command)
	}
	return strconv.Atoi(flag.Arg(0))
}
