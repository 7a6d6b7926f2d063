package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// ConnectionFactory opens configured SQLite connections
type ConnectionFactory struct {
	logger *logrus.Logger
}

// NewConnectionFactory creates a new connection factory
func NewConnectionFactory(logger *logrus.Logger) *ConnectionFactory {
	if logger == nil {
		logger = logrus.New()
	}
	return &ConnectionFactory{
		logger: logger,
	}
}

// CreateConnection opens the database described by config and verifies it responds
func (f *ConnectionFactory) CreateConnection(ctx context.Context, config *Config) (*sql.DB, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	path := config.Path
	if !config.IsMemory() {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		path = absPath
	}

	dsn := f.buildSQLiteDSN(path, config)
	f.logger.WithFields(logrus.Fields{
		"driver": "sqlite3",
		"path":   path,
	}).Debug("Opening SQLite connection")

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	f.configureConnectionPool(db, config)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	f.applySQLiteSettings(ctx, db)

	f.logger.WithField("path", path).Info("SQLite connection established")
	return db, nil
}

// buildSQLiteDSN builds a go-sqlite3 DSN with connection options
func (f *ConnectionFactory) buildSQLiteDSN(path string, config *Config) string {
	var options []string

	if config.WALMode && !config.IsMemory() {
		options = append(options, "_journal_mode=WAL")
	}
	if config.Synchronous != "" {
		options = append(options, fmt.Sprintf("_synchronous=%s", config.Synchronous))
	}
	if config.ForeignKeys {
		options = append(options, "_foreign_keys=on")
	}
	if config.BusyTimeout > 0 {
		options = append(options, fmt.Sprintf("_busy_timeout=%d", config.BusyTimeout))
	}

	if len(options) > 0 {
		return fmt.Sprintf("file:%s?%s", path, strings.Join(options, "&"))
	}
	return fmt.Sprintf("file:%s", path)
}

// applySQLiteSettings applies per-connection pragmas; failures are logged, not fatal
func (f *ConnectionFactory) applySQLiteSettings(ctx context.Context, db *sql.DB) {
	settings := []string{
		"PRAGMA temp_store = MEMORY",
		"PRAGMA optimize",
	}

	for _, setting := range settings {
		if _, err := db.ExecContext(ctx, setting); err != nil {
			f.logger.WithError(err).WithField("setting", setting).Warn("Failed to apply SQLite setting")
		}
	}
}

// configureConnectionPool configures the database connection pool
func (f *ConnectionFactory) configureConnectionPool(db *sql.DB, config *Config) {
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)

	f.logger.WithFields(logrus.Fields{
		"max_open_conns":    config.MaxOpenConns,
		"max_idle_conns":    config.MaxIdleConns,
		"conn_max_lifetime": config.ConnMaxLifetime,
	}).Debug("Configured connection pool")
}

// HealthChecker provides health checking capabilities for database connections
type HealthChecker struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(db *sql.DB, logger *logrus.Logger) *HealthChecker {
	if logger == nil {
		logger = logrus.New()
	}
	return &HealthChecker{
		db:     db,
		logger: logger,
	}
}

// CheckHealth pings the database and runs a trivial query
func (h *HealthChecker) CheckHealth(ctx context.Context) error {
	start := time.Now()
	defer func() {
		h.logger.WithField("duration", time.Since(start)).Debug("Health check completed")
	}()

	if err := h.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if result != 1 {
		return fmt.Errorf("test query returned unexpected result: %d", result)
	}

	return nil
}
