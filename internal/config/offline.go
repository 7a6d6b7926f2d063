package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"cannabistrack-api/internal/database"
)

// OfflineConfig holds the offline client configuration
type OfflineConfig struct {
	ServerURL      string
	CachePath      string
	ExportDir      string
	RequestTimeout time.Duration
	RetryAttempts  int
	AutoMigrate    bool
}

// Validate validates the offline configuration
func (c *OfflineConfig) Validate() error {
	if c.CachePath == "" {
		return fmt.Errorf("OFFLINE_CACHE_PATH cannot be empty")
	}
	if _, err := url.ParseRequestURI(c.ServerURL); err != nil {
		return fmt.Errorf("invalid OFFLINE_SERVER_URL %q: %w", c.ServerURL, err)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("OFFLINE_REQUEST_TIMEOUT must be positive")
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("OFFLINE_RETRY_ATTEMPTS must be at least 1")
	}
	return nil
}

// ToDatabaseConfig converts the cache settings into a database.Config
func (c *OfflineConfig) ToDatabaseConfig() *database.Config {
	cfg := database.DefaultConfig(c.CachePath)
	cfg.AutoMigrate = c.AutoMigrate
	return cfg
}

// EnsureDirectories creates the cache and export directories
func (c *OfflineConfig) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.CachePath)}
	if c.ExportDir != "" {
		dirs = append(dirs, c.ExportDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
