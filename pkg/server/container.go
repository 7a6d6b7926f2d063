package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/config"
	"cannabistrack-api/internal/handlers"
	"cannabistrack-api/internal/migration"
	"cannabistrack-api/internal/repositories/memory"
	"cannabistrack-api/internal/services"
)

// Version is reported by the health endpoint
const Version = "1.0.0"

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Store    *memory.Store
	Services *services.ServiceContainer
	Router   *gin.Engine
}

// NewContainer wires the store, services and router from configuration
func NewContainer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if logger == nil {
		logger = config.NewLogger(cfg.Log)
	}

	store := memory.NewStore(logger)

	if cfg.Inventory.SeedFile != "" {
		importer := migration.NewSeedImporter(store, cfg.Inventory.SeedFile, logger)
		if importer.SeedFileExists() {
			if _, err := importer.Import(ctx); err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to import seed data: %w", err)
			}
		} else {
			logger.WithField("path", cfg.Inventory.SeedFile).Warn("Seed file not found, starting empty")
		}
	}

	serviceContainer, err := services.NewServiceContainer(store, &services.ServiceConfig{
		LowStockThreshold: cfg.Inventory.LowStockThreshold,
		Logger:            logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to create service container: %w", err)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, &handlers.MiddlewareConfig{
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxRequestSize: cfg.HTTP.MaxRequestSize,
		RateLimitRPS:   cfg.HTTP.RateLimitRPS,
		RateLimitBurst: cfg.HTTP.RateLimitBurst,
	})
	handlers.SetupRoutes(router, &handlers.RouterConfig{
		Services:      serviceContainer,
		Repositories:  store,
		Version:       Version,
		EnableSwagger: cfg.HTTP.EnableSwagger,
	})

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Services: serviceContainer,
		Router:   router,
	}, nil
}

// HTTPServer returns an http.Server serving the router with configured timeouts
func (c *Container) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         c.Config.Address(),
		Handler:      c.Router,
		ReadTimeout:  c.Config.Server.ReadTimeout,
		WriteTimeout: c.Config.Server.WriteTimeout,
		IdleTimeout:  c.Config.Server.IdleTimeout,
	}
}

// Close cleans up all resources
func (c *Container) Close() error {
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			return fmt.Errorf("failed to close store: %w", err)
		}
	}
	return nil
}
