package services

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// ServiceContainer holds all service instances
type ServiceContainer struct {
	ProductService  ProductService
	SaleService     SaleService
	AuditService    AuditService
	SettingsService SettingsService
	ReportService   ReportService
}

// ServiceConfig holds configuration for services
type ServiceConfig struct {
	LowStockThreshold float64
	Logger            *logrus.Logger
}

// NewServiceContainer creates a new service container with all services
func NewServiceContainer(repos repositories.RepositoryManager, config *ServiceConfig) (*ServiceContainer, error) {
	if repos == nil {
		return nil, fmt.Errorf("repository manager cannot be nil")
	}

	if config == nil {
		config = &ServiceConfig{}
	}
	if config.LowStockThreshold <= 0 {
		config.LowStockThreshold = models.DefaultLowStockThreshold
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
	}

	return &ServiceContainer{
		ProductService:  NewProductService(repos.Products()),
		SaleService:     NewSaleService(repos.Sales(), config.Logger),
		AuditService:    NewAuditService(repos.Audits()),
		SettingsService: NewSettingsService(repos.Settings()),
		ReportService:   NewReportService(repos, config.LowStockThreshold),
	}, nil
}

// Validate validates that all services are properly initialized
func (sc *ServiceContainer) Validate() error {
	if sc.ProductService == nil {
		return fmt.Errorf("product service is nil")
	}
	if sc.SaleService == nil {
		return fmt.Errorf("sale service is nil")
	}
	if sc.AuditService == nil {
		return fmt.Errorf("audit service is nil")
	}
	if sc.SettingsService == nil {
		return fmt.Errorf("settings service is nil")
	}
	if sc.ReportService == nil {
		return fmt.Errorf("report service is nil")
	}
	return nil
}
