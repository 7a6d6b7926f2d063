package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/config"
	"cannabistrack-api/internal/database"
)

func main() {
	var (
		dbPath     = flag.String("db", config.GetEnv("OFFLINE_CACHE_PATH", "./data/offline.db"), "Offline cache database file path")
		action     = flag.String("action", "up", "Migration action: up, down, status, validate, backup")
		backupPath = flag.String("backup", "", "Backup file path (backup action)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logger
	logger := logrus.New()
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	absDBPath, err := filepath.Abs(*dbPath)
	if err != nil {
		logger.WithError(err).Fatal("Failed to get absolute database path")
	}

	logger.WithFields(logrus.Fields{
		"db_path": absDBPath,
		"action":  *action,
	}).Info("Starting migration tool")

	cfg := database.DefaultConfig(absDBPath)
	cfg.AutoMigrate = false
	manager := database.NewManager(cfg, logger)

	ctx := context.Background()
	if err := manager.Connect(ctx); err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer manager.Close()

	migrations, err := manager.Migrations()
	if err != nil {
		logger.WithError(err).Fatal("Migration manager unavailable")
	}

	switch *action {
	case "up":
		err = migrations.RunMigrations()
	case "down":
		err = migrations.RollbackMigration()
	case "status":
		err = showMigrationStatus(migrations)
	case "validate":
		if err = migrations.ValidateSchema(); err == nil {
			fmt.Println("Schema validation passed successfully")
		}
	case "backup":
		path := *backupPath
		if path == "" {
			path = fmt.Sprintf("%s.%s.bak", absDBPath, time.Now().Format("20060102_150405"))
		}
		err = manager.CreateBackup(ctx, path)
	default:
		logger.WithField("action", *action).Fatal("Unknown action. Use: up, down, status, validate, backup")
	}
	if err != nil {
		logger.WithError(err).Fatalf("Migration %s failed", *action)
	}

	logger.Info("Migration tool completed successfully")
}

func showMigrationStatus(migrations *database.MigrationManager) error {
	status, err := migrations.GetMigrationStatus()
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	fmt.Printf("Migration Status:\n")
	fmt.Printf("  Version: %d\n", status.Version)
	fmt.Printf("  Applied: %t\n", status.Applied)
	fmt.Printf("  Dirty: %t\n", status.Dirty)
	return nil
}
