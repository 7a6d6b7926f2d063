package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"cannabistrack-api/internal/middleware"
	"cannabistrack-api/internal/repositories"
	"cannabistrack-api/internal/services"
)

// RouterConfig holds configuration for setting up routes
type RouterConfig struct {
	Services      *services.ServiceContainer
	Repositories  repositories.RepositoryManager
	Version       string
	EnableSwagger bool
}

// MiddlewareConfig holds the tunables of the global middleware chain
type MiddlewareConfig struct {
	Logger         *logrus.Logger
	AllowedOrigins []string
	MaxRequestSize int64
	RateLimitRPS   float64
	RateLimitBurst int
	SlowRequest    time.Duration
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, config *RouterConfig) {
	productHandler := NewProductHandler(config.Services.ProductService)
	saleHandler := NewSaleHandler(config.Services.SaleService)
	auditHandler := NewAuditHandler(config.Services.AuditService)
	settingsHandler := NewSettingsHandler(config.Services.SettingsService)
	reportHandler := NewReportHandler(config.Services.ReportService)
	healthHandler := NewHealthHandler(config.Repositories, config.Version)

	if config.EnableSwagger {
		router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api")
	{
		products := api.Group("/products")
		{
			products.GET("", productHandler.ListProducts)
			products.POST("", productHandler.CreateProduct)
			products.GET("/low-stock", productHandler.GetLowStockProducts)
			products.GET("/expired", productHandler.GetExpiredProducts)
			products.GET("/search", productHandler.SearchProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.DELETE("/:id", productHandler.DeleteProduct)
		}

		sales := api.Group("/sales")
		{
			sales.GET("", saleHandler.ListSales)
			sales.POST("", saleHandler.CreateSale)
			sales.GET("/range", saleHandler.GetSalesByDateRange)
			sales.GET("/:id", saleHandler.GetSale)
			sales.PATCH("/:id", saleHandler.UpdateSale)
		}

		audits := api.Group("/audits")
		{
			audits.GET("", auditHandler.ListAudits)
			audits.POST("", auditHandler.CreateAudit)
			audits.GET("/:id", auditHandler.GetAudit)
			audits.PUT("/:id", auditHandler.UpdateAudit)
		}

		settings := api.Group("/settings")
		{
			settings.GET("", settingsHandler.GetSettings)
			settings.PUT("", settingsHandler.UpdateSettings)
		}

		reports := api.Group("/reports")
		{
			reports.GET("/summary", reportHandler.GetSummary)
			reports.GET("/sales/daily", reportHandler.GetDailySales)
			reports.GET("/export/:entity", reportHandler.Export)
		}
	}
}

// SetupMiddleware configures global middleware
func SetupMiddleware(router *gin.Engine, config *MiddlewareConfig) {
	if config == nil {
		config = &MiddlewareConfig{}
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = 10 * 1024 * 1024
	}
	if config.RateLimitRPS <= 0 {
		config.RateLimitRPS = 100
	}
	if config.RateLimitBurst <= 0 {
		config.RateLimitBurst = 200
	}

	router.Use(middleware.ErrorHandler(config.Logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.ContextLogger(config.Logger))
	router.Use(middleware.CORS(config.AllowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.RequestSizeLimit(config.MaxRequestSize))
	router.Use(middleware.ContentTypeValidation("application/json"))
	router.Use(middleware.RequestValidation())
	router.Use(middleware.RateLimiter(config.RateLimitRPS, config.RateLimitBurst))
	router.Use(middleware.StructuredLogger(config.Logger))
	router.Use(middleware.PerformanceMonitor(config.Logger, config.SlowRequest))
	router.Use(middleware.AuditLogger(config.Logger))
}
