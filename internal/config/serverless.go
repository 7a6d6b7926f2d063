package config

import (
	"os"
	"path/filepath"
	"sync"
)

// ServerlessConfig holds serverless-specific configuration
type ServerlessConfig struct {
	IsLambda     bool
	FunctionName string
	Region       string
	Stage        string
}

var (
	serverlessConfig *ServerlessConfig
	serverlessOnce   sync.Once
)

// GetServerlessConfig returns the serverless configuration
func GetServerlessConfig() *ServerlessConfig {
	serverlessOnce.Do(func() {
		serverlessConfig = detectServerless()
	})
	return serverlessConfig
}

func detectServerless() *ServerlessConfig {
	return &ServerlessConfig{
		IsLambda:     os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",
		FunctionName: os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		Region:       os.Getenv("AWS_REGION"),
		Stage:        GetEnv("STAGE", "dev"),
	}
}

// IsServerlessMode returns true if running in serverless mode
func IsServerlessMode() bool {
	return GetServerlessConfig().IsLambda
}

// GetDeploymentMode returns the current deployment mode
func GetDeploymentMode() string {
	if IsServerlessMode() {
		return "serverless"
	}
	return "server"
}

// AdaptForServerless adjusts configuration for a Lambda runtime.
// Only /tmp is writable there and CloudWatch expects one JSON object per line.
func AdaptForServerless(config *Config, sc *ServerlessConfig) *Config {
	if sc == nil || !sc.IsLambda {
		return config
	}

	config.Log.Format = "json"
	config.HTTP.EnableSwagger = false
	if !filepath.IsAbs(config.Offline.CachePath) || filepath.Dir(config.Offline.CachePath) != "/tmp" {
		config.Offline.CachePath = filepath.Join("/tmp", filepath.Base(config.Offline.CachePath))
	}
	if config.Offline.ExportDir != "" {
		config.Offline.ExportDir = filepath.Join("/tmp", filepath.Base(config.Offline.ExportDir))
	}
	return config
}

// GetOptimizedConfig loads configuration adapted to the current deployment mode
func GetOptimizedConfig() (*Config, error) {
	config, err := Load()
	if err != nil {
		return nil, err
	}
	return AdaptForServerless(config, GetServerlessConfig()), nil
}
