package database

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func connectTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	manager := NewManager(DefaultConfig(path), quietLogger())
	if err := manager.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager, path
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"empty path", func(c *Config) { c.Path = "" }, true},
		{"no connections", func(c *Config) { c.MaxOpenConns = 0 }, true},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("cache.db")
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildSQLiteDSN(t *testing.T) {
	factory := NewConnectionFactory(quietLogger())

	got := factory.buildSQLiteDSN("/tmp/cache.db", DefaultConfig("/tmp/cache.db"))
	want := "file:/tmp/cache.db?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000"
	if got != want {
		t.Errorf("buildSQLiteDSN() = %q, want %q", got, want)
	}

	bare := &Config{Path: ":memory:", MaxOpenConns: 1}
	if got := factory.buildSQLiteDSN(":memory:", bare); got != "file::memory:" {
		t.Errorf("buildSQLiteDSN() = %q, want %q", got, "file::memory:")
	}
}

func TestManagerConnectAppliesSchema(t *testing.T) {
	manager, _ := connectTestManager(t)

	if !manager.IsConnected() {
		t.Fatal("expected manager to be connected")
	}
	if err := manager.CheckHealth(context.Background()); err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}

	migrations, err := manager.Migrations()
	if err != nil {
		t.Fatalf("Migrations() error = %v", err)
	}
	if err := migrations.ValidateSchema(); err != nil {
		t.Fatalf("ValidateSchema() error = %v", err)
	}

	status, err := migrations.GetMigrationStatus()
	if err != nil {
		t.Fatalf("GetMigrationStatus() error = %v", err)
	}
	if status.Version != 1 || status.Dirty || !status.Applied {
		t.Errorf("unexpected migration status: %+v", status)
	}

	if err := migrations.RunMigrations(); err != nil {
		t.Errorf("second RunMigrations() error = %v", err)
	}
}

func TestRollbackAndReapply(t *testing.T) {
	manager, _ := connectTestManager(t)
	migrations, _ := manager.Migrations()

	if err := migrations.RollbackMigration(); err != nil {
		t.Fatalf("RollbackMigration() error = %v", err)
	}
	if err := migrations.ValidateSchema(); err == nil {
		t.Fatal("expected schema validation to fail after rollback")
	}

	if err := migrations.RunMigrations(); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}
	if err := migrations.ValidateSchema(); err != nil {
		t.Errorf("ValidateSchema() error = %v", err)
	}
}

func TestWithTransactionRollsBack(t *testing.T) {
	manager, _ := connectTestManager(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := manager.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (id, data, cached_at) VALUES ('default', '{}', 'now')`); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("WithTransaction() error = %v, want %v", err, errBoom)
	}

	var count int
	if err := manager.GetDB().QueryRowContext(ctx, `SELECT COUNT(*) FROM settings`).Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 0 {
		t.Errorf("expected rollback to leave settings empty, got %d rows", count)
	}
}

func TestCreateBackup(t *testing.T) {
	manager, path := connectTestManager(t)
	backup := filepath.Join(filepath.Dir(path), "backup.db")

	if err := manager.CreateBackup(context.Background(), backup); err != nil {
		t.Fatalf("CreateBackup() error = %v", err)
	}
	if _, err := os.Stat(backup); err != nil {
		t.Errorf("expected backup file: %v", err)
	}
}

func TestDisconnect(t *testing.T) {
	manager, _ := connectTestManager(t)

	if err := manager.Disconnect(); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if manager.GetDB() != nil {
		t.Error("expected nil DB after disconnect")
	}
	if err := manager.CheckHealth(context.Background()); err == nil {
		t.Error("expected health check to fail after disconnect")
	}
	if err := manager.Disconnect(); err != nil {
		t.Errorf("second Disconnect() error = %v", err)
	}
}
