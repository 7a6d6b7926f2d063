package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment string
	Server      ServerConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Inventory   InventoryConfig
	Offline     OfflineConfig
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string // "json" or "text"
}

// HTTPConfig holds middleware tunables
type HTTPConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	AllowedOrigins []string
	MaxRequestSize int64
	EnableSwagger  bool
}

// InventoryConfig holds domain tunables
type InventoryConfig struct {
	LowStockThreshold float64
	SeedFile          string
}

// Load loads configuration from the environment and an optional .env file
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	environment := strings.ToLower(v.GetString("ENVIRONMENT"))
	logFormat := v.GetString("LOG_FORMAT")
	if logFormat == "" {
		logFormat = "text"
		if environment == "production" {
			logFormat = "json"
		}
	}

	config := &Config{
		Environment: environment,
		Server: ServerConfig{
			Host:            v.GetString("HOST"),
			Port:            v.GetString("PORT"),
			ReadTimeout:     v.GetDuration("READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: logFormat,
		},
		HTTP: HTTPConfig{
			RateLimitRPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			RateLimitBurst: v.GetInt("RATE_LIMIT_BURST"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
			MaxRequestSize: v.GetInt64("MAX_REQUEST_SIZE"),
			EnableSwagger:  v.GetBool("ENABLE_SWAGGER") && environment != "production",
		},
		Inventory: InventoryConfig{
			LowStockThreshold: v.GetFloat64("LOW_STOCK_THRESHOLD"),
			SeedFile:          v.GetString("SEED_FILE"),
		},
		Offline: OfflineConfig{
			ServerURL:      v.GetString("OFFLINE_SERVER_URL"),
			CachePath:      v.GetString("OFFLINE_CACHE_PATH"),
			ExportDir:      v.GetString("OFFLINE_EXPORT_DIR"),
			RequestTimeout: v.GetDuration("OFFLINE_REQUEST_TIMEOUT"),
			RetryAttempts:  v.GetInt("OFFLINE_RETRY_ATTEMPTS"),
			AutoMigrate:    v.GetBool("OFFLINE_AUTO_MIGRATE"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("HOST", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("READ_TIMEOUT", 15*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SHUTDOWN_TIMEOUT", 30*time.Second)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("MAX_REQUEST_SIZE", 10*1024*1024)
	v.SetDefault("LOW_STOCK_THRESHOLD", 10)
	v.SetDefault("ENABLE_SWAGGER", true)
	v.SetDefault("OFFLINE_SERVER_URL", "http://localhost:8080")
	v.SetDefault("OFFLINE_CACHE_PATH", "./data/offline.db")
	v.SetDefault("OFFLINE_EXPORT_DIR", "./data/exports")
	v.SetDefault("OFFLINE_REQUEST_TIMEOUT", 10*time.Second)
	v.SetDefault("OFFLINE_RETRY_ATTEMPTS", 3)
	v.SetDefault("OFFLINE_AUTO_MIGRATE", true)
}

// Validate checks the values Load cannot default its way around
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Log.Level, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if c.HTTP.RateLimitRPS <= 0 || c.HTTP.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit values must be positive")
	}
	if c.HTTP.MaxRequestSize <= 0 {
		return fmt.Errorf("MAX_REQUEST_SIZE must be positive")
	}
	if c.Inventory.LowStockThreshold < 0 {
		return fmt.Errorf("LOW_STOCK_THRESHOLD cannot be negative")
	}
	return c.Offline.Validate()
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Address returns the host:port the server listens on
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// NewLogger builds the application logger
func NewLogger(cfg LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// GetEnv gets an environment variable with a fallback value
func GetEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
