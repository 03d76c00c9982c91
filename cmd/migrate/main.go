package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/dropship/backend/internal/infrastructure/config"
	"github.com/dropship/backend/internal/infrastructure/logger"
	"github.com/dropship/backend/internal/infrastructure/persistence"
)

func main() {
	var (
		logLevel string
		force    bool
	)
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.BoolVar(&force, "force", false, "Confirm destructive commands")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}
	command := args[0]

	log, err := logger.New(&logger.Config{
		Level:      logLevel,
		Format:     "console",
		Output:     "stdout",
		TimeFormat: "2006-01-02 15:04:05",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}
	if cfg.Database.Driver == config.DriverMemory {
		log.Fatal("The memory driver has no schema to migrate")
	}

	// Migrations run explicitly here, never as a side effect of connecting
	dbCfg := cfg.Database
	dbCfg.AutoMigrate = false
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(logLevel))
	db, err := persistence.NewDatabaseWithLogger(&dbCfg, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()

	log.Info("Migration CLI started",
		zap.String("command", command),
		zap.String("driver", dbCfg.Driver),
	)

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			log.Fatal("Migration up failed", zap.Error(err))
		}
		log.Info("Schema is up to date")

	case "status":
		status, err := db.SchemaStatus()
		if err != nil {
			log.Fatal("Failed to read schema status", zap.Error(err))
		}
		for _, s := range status {
			state := "missing"
			if s.Exists {
				state = "present"
			}
			fmt.Printf("  %-16s %s\n", s.Table, state)
		}

	case "drop":
		if !force {
			log.Fatal("drop deletes every sync job and history record; rerun with -force")
		}
		if err := db.DropSchema(); err != nil {
			log.Fatal("Dropping schema failed", zap.Error(err))
		}
		log.Warn("Schema dropped")

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: migrate [flags] <command>

Commands:
  up       Create or update the sync job tables
  status   Show which tables exist
  drop     Drop the sync job tables (requires -force)

Flags:
  -log-level string   Log level (debug, info, warn, error) (default "info")
  -force              Confirm destructive commands`)
}
