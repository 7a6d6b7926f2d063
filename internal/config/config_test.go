package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("LOG_FORMAT", "")

	config, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if config.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", config.Server.Port)
	}
	if config.Log.Format != "text" {
		t.Errorf("Expected text logs in development, got %s", config.Log.Format)
	}
	if config.Inventory.LowStockThreshold != 10 {
		t.Errorf("Expected low stock threshold 10, got %v", config.Inventory.LowStockThreshold)
	}
	if config.Offline.RequestTimeout != 10*time.Second {
		t.Errorf("Expected offline timeout 10s, got %v", config.Offline.RequestTimeout)
	}
	if len(config.HTTP.AllowedOrigins) != 1 || config.HTTP.AllowedOrigins[0] != "*" {
		t.Errorf("Expected wildcard CORS origin, got %v", config.HTTP.AllowedOrigins)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "production switches to json and hides swagger",
			env:  map[string]string{"ENVIRONMENT": "production", "LOG_FORMAT": "", "ENABLE_SWAGGER": "true"},
			check: func(t *testing.T, c *Config) {
				if c.Log.Format != "json" {
					t.Errorf("Expected json logs, got %s", c.Log.Format)
				}
				if c.HTTP.EnableSwagger {
					t.Error("Expected swagger disabled in production")
				}
			},
		},
		{
			name: "overrides",
			env: map[string]string{
				"PORT":                    "9090",
				"CORS_ALLOWED_ORIGINS":    "http://a.example, http://b.example",
				"LOW_STOCK_THRESHOLD":     "2.5",
				"OFFLINE_REQUEST_TIMEOUT": "3s",
				"OFFLINE_RETRY_ATTEMPTS":  "5",
			},
			check: func(t *testing.T, c *Config) {
				if c.Address() != ":9090" {
					t.Errorf("Expected :9090, got %s", c.Address())
				}
				if len(c.HTTP.AllowedOrigins) != 2 || c.HTTP.AllowedOrigins[1] != "http://b.example" {
					t.Errorf("Unexpected origins %v", c.HTTP.AllowedOrigins)
				}
				if c.Inventory.LowStockThreshold != 2.5 {
					t.Errorf("Expected threshold 2.5, got %v", c.Inventory.LowStockThreshold)
				}
				if c.Offline.RequestTimeout != 3*time.Second || c.Offline.RetryAttempts != 5 {
					t.Errorf("Unexpected offline config %+v", c.Offline)
				}
			},
		},
		{name: "bad log level", env: map[string]string{"LOG_LEVEL": "loud"}, wantErr: true},
		{name: "bad log format", env: map[string]string{"LOG_FORMAT": "xml"}, wantErr: true},
		{name: "bad server url", env: map[string]string{"OFFLINE_SERVER_URL": "nowhere"}, wantErr: true},
		{name: "negative threshold", env: map[string]string{"LOW_STOCK_THRESHOLD": "-1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			config, err := Load()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Load() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.check != nil && config != nil {
				tt.check(t, config)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger(LogConfig{Level: "debug", Format: "json"})
	if logger.GetLevel() != logrus.DebugLevel {
		t.Errorf("Expected debug level, got %v", logger.GetLevel())
	}
	if _, ok := logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Errorf("Expected JSON formatter, got %T", logger.Formatter)
	}

	fallback := NewLogger(LogConfig{Level: "nope", Format: "text"})
	if fallback.GetLevel() != logrus.InfoLevel {
		t.Errorf("Expected info fallback, got %v", fallback.GetLevel())
	}
}

func TestAdaptForServerless(t *testing.T) {
	config := &Config{
		Log:     LogConfig{Format: "text"},
		HTTP:    HTTPConfig{EnableSwagger: true},
		Offline: OfflineConfig{CachePath: "./data/offline.db", ExportDir: "./data/exports"},
	}

	same := AdaptForServerless(config, &ServerlessConfig{IsLambda: false})
	if same.Log.Format != "text" {
		t.Fatal("Expected no change outside Lambda")
	}

	adapted := AdaptForServerless(config, &ServerlessConfig{IsLambda: true})
	if adapted.Log.Format != "json" || adapted.HTTP.EnableSwagger {
		t.Errorf("Expected json logs and no swagger, got %+v", adapted)
	}
	if adapted.Offline.CachePath != "/tmp/offline.db" {
		t.Errorf("Expected cache under /tmp, got %s", adapted.Offline.CachePath)
	}
	if adapted.Offline.ExportDir != "/tmp/exports" {
		t.Errorf("Expected exports under /tmp, got %s", adapted.Offline.ExportDir)
	}
}

func TestOfflineToDatabaseConfig(t *testing.T) {
	offline := OfflineConfig{CachePath: "/tmp/cache.db", AutoMigrate: false}
	db := offline.ToDatabaseConfig()
	if db.Path != "/tmp/cache.db" || db.AutoMigrate {
		t.Errorf("Unexpected database config %+v", db)
	}
	if db.MaxOpenConns != 1 {
		t.Errorf("Expected a single connection, got %d", db.MaxOpenConns)
	}
}
