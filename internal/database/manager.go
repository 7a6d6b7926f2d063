package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Manager owns the offline cache database connection and its schema
type Manager struct {
	mu          sync.RWMutex
	config      *Config
	logger      *logrus.Logger
	factory     *ConnectionFactory
	db          *sql.DB
	migrations  *MigrationManager
	health      *HealthChecker
	isConnected bool
}

// NewManager creates a new database manager
func NewManager(config *Config, logger *logrus.Logger) *Manager {
	if logger == nil {
		logger = logrus.New()
	}

	return &Manager{
		config:  config,
		logger:  logger,
		factory: NewConnectionFactory(logger),
	}
}

// Connect opens the database and, when AutoMigrate is set, applies pending migrations
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isConnected {
		return fmt.Errorf("database already connected")
	}

	db, err := m.factory.CreateConnection(ctx, m.config)
	if err != nil {
		return fmt.Errorf("failed to create database connection: %w", err)
	}

	migrations := NewMigrationManager(db, m.logger)
	if m.config.AutoMigrate {
		if err := migrations.RunMigrations(); err != nil {
			db.Close()
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	health := NewHealthChecker(db, m.logger)
	if err := health.CheckHealth(ctx); err != nil {
		db.Close()
		return fmt.Errorf("initial health check failed: %w", err)
	}

	m.db = db
	m.migrations = migrations
	m.health = health
	m.isConnected = true
	return nil
}

// Disconnect closes the database connection
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isConnected {
		return nil
	}

	err := m.db.Close()
	m.db = nil
	m.migrations = nil
	m.health = nil
	m.isConnected = false

	if err != nil {
		return fmt.Errorf("failed to disconnect from database: %w", err)
	}

	m.logger.Info("Database disconnected")
	return nil
}

// GetDB returns the database connection, or nil when disconnected
func (m *Manager) GetDB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// IsConnected returns true if the database is connected
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isConnected
}

// CheckHealth performs a health check on the database connection
func (m *Manager) CheckHealth(ctx context.Context) error {
	m.mu.RLock()
	health := m.health
	m.mu.RUnlock()

	if health == nil {
		return fmt.Errorf("database not connected")
	}
	return health.CheckHealth(ctx)
}

// Migrations returns the migration manager of the open connection
func (m *Manager) Migrations() (*MigrationManager, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.migrations == nil {
		return nil, fmt.Errorf("database not connected")
	}
	return m.migrations, nil
}

// CreateBackup writes a consistent copy of the database to backupPath
func (m *Manager) CreateBackup(ctx context.Context, backupPath string) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}
	if m.config.IsMemory() {
		return fmt.Errorf("backup is not supported for in-memory databases")
	}

	query := fmt.Sprintf("VACUUM INTO '%s'", strings.ReplaceAll(backupPath, "'", "''"))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create SQLite backup: %w", err)
	}

	m.logger.WithField("backup_path", backupPath).Info("SQLite backup created")
	return nil
}

// WithTransaction executes a function within a database transaction
func (m *Manager) WithTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db := m.GetDB()
	if db == nil {
		return fmt.Errorf("database not connected")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			m.logger.WithError(rollbackErr).Error("Failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Close closes the database manager
func (m *Manager) Close() error {
	return m.Disconnect()
}
