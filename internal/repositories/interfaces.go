package repositories

import (
	"context"

	"cannabistrack-api/internal/models"
)

// ProductRepository defines operations specific to product management
type ProductRepository interface {
	// Create stores a new product. A repeated idempotency key returns the
	// product created under it and replayed=true.
	Create(ctx context.Context, product *models.Product, idempotencyKey string) (created *models.Product, replayed bool, err error)

	// GetByID retrieves a product by its ID
	GetByID(ctx context.Context, id string) (*models.Product, error)

	// Update applies fn to a copy of the stored product and persists the result
	Update(ctx context.Context, id string, fn func(p *models.Product) error) (*models.Product, error)

	// Delete removes a product and reports whether it existed
	Delete(ctx context.Context, id string) (bool, error)

	// List retrieves all products ordered by creation time
	List(ctx context.Context) ([]*models.Product, error)

	// Count returns the total number of products
	Count(ctx context.Context) (int64, error)

	// Search matches strain name, batch number, type and supplier
	Search(ctx context.Context, query string, limit int) ([]*models.Product, error)

	// GetByBatchNumber retrieves products carrying the given batch number
	GetByBatchNumber(ctx context.Context, batchNumber string) ([]*models.Product, error)
}

// SaleRepository defines operations specific to sale management.
// Sales are never deleted.
type SaleRepository interface {
	// Create stores a new sale and removes its quantity from the referenced
	// product in the same step. A missing product leaves stock untouched.
	Create(ctx context.Context, sale *models.Sale, idempotencyKey string) (created *models.Sale, replayed bool, err error)

	// GetByID retrieves a sale by its ID
	GetByID(ctx context.Context, id string) (*models.Sale, error)

	// Update applies fn to a copy of the stored sale and adjusts product
	// stock by the quantity delta in the same step.
	Update(ctx context.Context, id string, fn func(s *models.Sale) error) (*models.Sale, error)

	// List retrieves all sales ordered by creation time
	List(ctx context.Context) ([]*models.Sale, error)

	// GetByProductID retrieves all sales for a specific product
	GetByProductID(ctx context.Context, productID string) ([]*models.Sale, error)

	// GetByDateRange retrieves sales whose saleDate lies in [startDate, endDate]
	// under plain string comparison.
	GetByDateRange(ctx context.Context, startDate, endDate string) ([]*models.Sale, error)
}

// AuditRepository defines operations specific to audit management
type AuditRepository interface {
	Create(ctx context.Context, audit *models.Audit, idempotencyKey string) (created *models.Audit, replayed bool, err error)
	GetByID(ctx context.Context, id string) (*models.Audit, error)
	Update(ctx context.Context, id string, fn func(a *models.Audit) error) (*models.Audit, error)
	List(ctx context.Context) ([]*models.Audit, error)

	// GetByStatus retrieves audits by status
	GetByStatus(ctx context.Context, status models.AuditStatus) ([]*models.Audit, error)
}

// SettingsRepository defines operations on the settings singleton
type SettingsRepository interface {
	// Get retrieves the settings (singleton)
	Get(ctx context.Context) (*models.AppSettings, error)

	// Update applies fn to a copy of the settings and persists the result
	Update(ctx context.Context, fn func(s *models.AppSettings) error) (*models.AppSettings, error)
}

// RepositoryManager provides access to all repositories
type RepositoryManager interface {
	Products() ProductRepository
	Sales() SaleRepository
	Audits() AuditRepository
	Settings() SettingsRepository

	// Health checks the health of the store
	Health(ctx context.Context) error

	// Close releases store resources
	Close() error
}
