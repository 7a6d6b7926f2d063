package database

import (
	"fmt"
	"time"
)

// Config describes the SQLite database backing the offline cache
type Config struct {
	Path            string
	WALMode         bool
	ForeignKeys     bool
	Synchronous     string
	BusyTimeout     int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// DefaultConfig returns the cache defaults for the database at path
func DefaultConfig(path string) *Config {
	return &Config{
		Path:            path,
		WALMode:         true,
		ForeignKeys:     true,
		Synchronous:     "NORMAL",
		BusyTimeout:     5000,
		MaxOpenConns:    1, // SQLite works best with single connection
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	}
}

// Validate validates the database configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("database path cannot be empty")
	}
	if c.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be at least 1")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("max idle connections cannot be negative")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy timeout cannot be negative")
	}
	return nil
}

// IsMemory reports whether the database lives in memory only
func (c *Config) IsMemory() bool {
	return c.Path == ":memory:"
}
