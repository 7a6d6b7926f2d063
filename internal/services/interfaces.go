package services

import (
	"context"

	"cannabistrack-api/internal/export"
	"cannabistrack-api/internal/models"
)

// ProductService defines the interface for product business logic operations
type ProductService interface {
	// CRUD operations
	CreateProduct(ctx context.Context, req *CreateProductRequest, idempotencyKey string) (*models.Product, bool, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) (bool, error)
	ListProducts(ctx context.Context) ([]*models.Product, error)

	// Inventory views
	SearchProducts(ctx context.Context, query string, limit int) ([]*models.Product, error)
	GetLowStockProducts(ctx context.Context, threshold float64) ([]*models.Product, error)
	GetExpiredProducts(ctx context.Context) ([]*models.Product, error)
	GetProductsByBatch(ctx context.Context, batchNumber string) ([]*models.Product, error)
}

// SaleService defines the interface for sale business logic operations
type SaleService interface {
	CreateSale(ctx context.Context, req *CreateSaleRequest, idempotencyKey string) (*models.Sale, bool, error)
	GetSale(ctx context.Context, id string) (*models.Sale, error)
	UpdateSale(ctx context.Context, id string, req *UpdateSaleRequest) (*models.Sale, error)
	ListSales(ctx context.Context) ([]*models.Sale, error)
	GetSalesByDateRange(ctx context.Context, startDate, endDate string) ([]*models.Sale, error)
	GetSalesByProduct(ctx context.Context, productID string) ([]*models.Sale, error)
}

// AuditService defines the interface for audit business logic operations
type AuditService interface {
	CreateAudit(ctx context.Context, req *CreateAuditRequest, idempotencyKey string) (*models.Audit, bool, error)
	GetAudit(ctx context.Context, id string) (*models.Audit, error)
	UpdateAudit(ctx context.Context, id string, req *UpdateAuditRequest) (*models.Audit, error)
	ListAudits(ctx context.Context) ([]*models.Audit, error)
	GetAuditsByStatus(ctx context.Context, status models.AuditStatus) ([]*models.Audit, error)
}

// SettingsService defines the interface for the settings singleton
type SettingsService interface {
	GetSettings(ctx context.Context) (*models.AppSettings, error)
	UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.AppSettings, error)
}

// ReportService defines dashboard and reporting operations
type ReportService interface {
	GetSummary(ctx context.Context) (*models.DashboardSummary, error)
	GetDailySales(ctx context.Context, days int) ([]models.DailySales, error)
	Export(ctx context.Context, entity string, format export.Format) (*ExportResult, error)
}

// Request and response types for service operations

// Product service types
type CreateProductRequest struct {
	StrainName      string  `json:"strainName" validate:"required,min=1,max=255"`
	BatchNumber     string  `json:"batchNumber" validate:"required,min=1,max=100"`
	ProductType     string  `json:"productType" validate:"required,oneof=flower concentrate edible topical other"`
	THCLevel        float64 `json:"thcLevel" validate:"gte=0,lte=100"`
	CBDLevel        float64 `json:"cbdLevel" validate:"gte=0,lte=100"`
	Quantity        float64 `json:"quantity" validate:"gte=0"`
	UnitPrice       float64 `json:"unitPrice" validate:"gte=0"`
	HarvestDate     string  `json:"harvestDate" validate:"required"`
	ExpiryDate      string  `json:"expiryDate" validate:"required"`
	Supplier        *string `json:"supplier,omitempty"`
	StorageLocation *string `json:"storageLocation,omitempty"`
}

// UpdateProductRequest carries a partial product update; nil fields are left unchanged
type UpdateProductRequest struct {
	StrainName      *string  `json:"strainName,omitempty" validate:"omitempty,min=1,max=255"`
	BatchNumber     *string  `json:"batchNumber,omitempty" validate:"omitempty,min=1,max=100"`
	ProductType     *string  `json:"productType,omitempty" validate:"omitempty,oneof=flower concentrate edible topical other"`
	THCLevel        *float64 `json:"thcLevel,omitempty" validate:"omitempty,gte=0,lte=100"`
	CBDLevel        *float64 `json:"cbdLevel,omitempty" validate:"omitempty,gte=0,lte=100"`
	Quantity        *float64 `json:"quantity,omitempty" validate:"omitempty,gte=0"`
	UnitPrice       *float64 `json:"unitPrice,omitempty" validate:"omitempty,gte=0"`
	HarvestDate     *string  `json:"harvestDate,omitempty" validate:"omitempty,min=1"`
	ExpiryDate      *string  `json:"expiryDate,omitempty" validate:"omitempty,min=1"`
	Supplier        *string  `json:"supplier,omitempty"`
	StorageLocation *string  `json:"storageLocation,omitempty"`
}

// Sale service types
type CreateSaleRequest struct {
	ProductID    string   `json:"productId" validate:"required"`
	Quantity     float64  `json:"quantity" validate:"required,gte=0.1"`
	UnitPrice    float64  `json:"unitPrice" validate:"gte=0"`
	TotalAmount  *float64 `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
	BatchNumber  string   `json:"batchNumber,omitempty"`
	CustomerInfo *string  `json:"customerInfo,omitempty"`
	SaleDate     string   `json:"saleDate" validate:"required"`
}

// UpdateSaleRequest carries a partial sale edit; nil fields are left unchanged
type UpdateSaleRequest struct {
	ProductID    *string  `json:"productId,omitempty" validate:"omitempty,min=1"`
	Quantity     *float64 `json:"quantity,omitempty" validate:"omitempty,gte=0.1"`
	UnitPrice    *float64 `json:"unitPrice,omitempty" validate:"omitempty,gte=0"`
	TotalAmount  *float64 `json:"totalAmount,omitempty" validate:"omitempty,gte=0"`
	BatchNumber  *string  `json:"batchNumber,omitempty"`
	CustomerInfo *string  `json:"customerInfo,omitempty"`
	SaleDate     *string  `json:"saleDate,omitempty" validate:"omitempty,min=1"`
}

// Audit service types
type DiscrepancyInput struct {
	ProductID        string  `json:"productId" validate:"required"`
	ExpectedQuantity float64 `json:"expectedQuantity" validate:"gte=0"`
	ActualQuantity   float64 `json:"actualQuantity" validate:"gte=0"`
}

type CreateAuditRequest struct {
	AuditType     string             `json:"auditType" validate:"required,oneof=monthly spot compliance"`
	AuditorName   string             `json:"auditorName" validate:"required,min=1,max=255"`
	StartDate     string             `json:"startDate" validate:"required"`
	EndDate       *string            `json:"endDate,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Discrepancies []DiscrepancyInput `json:"discrepancies,omitempty" validate:"omitempty,dive"`
}

// UpdateAuditRequest carries a partial audit update; a non-nil Discrepancies replaces the list
type UpdateAuditRequest struct {
	AuditType     *string            `json:"auditType,omitempty" validate:"omitempty,oneof=monthly spot compliance"`
	AuditorName   *string            `json:"auditorName,omitempty" validate:"omitempty,min=1,max=255"`
	Status        *string            `json:"status,omitempty" validate:"omitempty,oneof=pending in-progress completed failed"`
	StartDate     *string            `json:"startDate,omitempty" validate:"omitempty,min=1"`
	EndDate       *string            `json:"endDate,omitempty"`
	Notes         *string            `json:"notes,omitempty"`
	Discrepancies []DiscrepancyInput `json:"discrepancies,omitempty" validate:"omitempty,dive"`
}

// Settings service types
type UpdateSettingsRequest struct {
	AppName  *string `json:"appName,omitempty" validate:"omitempty,min=1,max=100"`
	LogoURL  *string `json:"logoUrl,omitempty" validate:"omitempty,max=2048"`
	Theme    *string `json:"theme,omitempty" validate:"omitempty,oneof=light dark"`
	Language *string `json:"language,omitempty" validate:"omitempty,oneof=en my th"`
}

// ExportResult is a rendered export ready to be served as a download
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}
