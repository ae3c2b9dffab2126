package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/kevin07696/gateway-reconciler/internal/config"
	"github.com/kevin07696/gateway-reconciler/internal/db/migrations"
	"go.uber.org/zap"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	db, err := config.LoadDatabase()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Connecting to database",
		zap.String("host", db.Host),
		zap.Int("port", db.Port),
		zap.String("database", db.Database),
	)

	command := os.Args[1]
	if command == "up" {
		if err := migrations.Up(db.MigrationURL(), logger); err != nil {
			logger.Fatal("Migration failed", zap.Error(err))
		}
		return
	}

	m, err := migrations.New(db.MigrationURL())
	if err != nil {
		logger.Fatal("Failed to initialize migrations", zap.Error(err))
	}
	defer m.Close()

	switch command {
	case "down":
		if err := m.Steps(-1); err != nil {
			logger.Fatal("Failed to roll back last migration", zap.Error(err))
		}
		logger.Info("Rolled back last migration")

	case "goto", "force":
		if len(os.Args) < 3 {
			logger.Fatal("A version number is required", zap.String("command", command))
		}
		version, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil {
			logger.Fatal("Invalid version number", zap.Error(err))
		}
		if command == "force" {
			err = m.Force(int(version))
		} else {
			err = m.Migrate(uint(version))
		}
		if err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatal("Migration failed", zap.String("command", command), zap.Uint64("version", version), zap.Error(err))
		}
		logger.Info("Database at requested version", zap.Uint64("version", version))

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("No migrations applied yet")
			return
		}
		if err != nil {
			logger.Fatal("Failed to read migration version", zap.Error(err))
		}
		logger.Info("Current migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`Usage: migrate COMMAND

Commands:
    up              Apply all pending migrations
    down            Roll back the most recent migration
    goto VERSION    Migrate up or down to VERSION
    force VERSION   Set VERSION without running migrations (clears dirty state)
    version         Print the current version
`)
}
