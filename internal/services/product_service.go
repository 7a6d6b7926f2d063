package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// productService implements the ProductService interface
type productService struct {
	productRepo repositories.ProductRepository
	validator   *validator.Validate
	now         func() time.Time
}

// NewProductService creates a new product service instance
func NewProductService(productRepo repositories.ProductRepository) ProductService {
	return &productService{
		productRepo: productRepo,
		validator:   newValidator(),
		now:         time.Now,
	}
}

// CreateProduct creates a new product
func (s *productService) CreateProduct(ctx context.Context, req *CreateProductRequest, idempotencyKey string) (*models.Product, bool, error) {
	if req == nil {
		return nil, false, newValidationError("Invalid product data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, false, newValidationError("Invalid product data", err)
	}

	created, replayed, err := s.productRepo.Create(ctx, req.NewProduct(), idempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create product: %w", err)
	}

	return created, replayed, nil
}

// GetProduct retrieves a product by ID
func (s *productService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if id == "" {
		return nil, repositories.NotFoundError("product", id)
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// UpdateProduct merges the provided fields over an existing product
func (s *productService) UpdateProduct(ctx context.Context, id string, req *UpdateProductRequest) (*models.Product, error) {
	if req == nil {
		return nil, newValidationError("Invalid product data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("Invalid product data", err)
	}

	product, err := s.productRepo.Update(ctx, id, func(p *models.Product) error {
		req.ApplyTo(p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteProduct deletes a product by ID and reports whether it existed.
// Sales keep their productId; reports show them against an unknown product.
func (s *productService) DeleteProduct(ctx context.Context, id string) (bool, error) {
	existed, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}
	return existed, nil
}

// ListProducts retrieves all products
func (s *productService) ListProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// SearchProducts performs a case-insensitive search over strain, batch, type and supplier
func (s *productService) SearchProducts(ctx context.Context, query string, limit int) ([]*models.Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	products, err := s.productRepo.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

// GetLowStockProducts returns products whose quantity is below threshold
func (s *productService) GetLowStockProducts(ctx context.Context, threshold float64) ([]*models.Product, error) {
	if threshold <= 0 {
		threshold = models.DefaultLowStockThreshold
	}

	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	low := []*models.Product{}
	for _, p := range products {
		if p.IsLowStock(threshold) {
			low = append(low, p)
		}
	}
	return low, nil
}

// GetExpiredProducts returns products whose expiry date has passed
func (s *productService) GetExpiredProducts(ctx context.Context) ([]*models.Product, error) {
	products, err := s.ListProducts(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expired := []*models.Product{}
	for _, p := range products {
		if p.IsExpired(now) {
			expired = append(expired, p)
		}
	}
	return expired, nil
}

// GetProductsByBatch returns products carrying a batch number
func (s *productService) GetProductsByBatch(ctx context.Context, batchNumber string) ([]*models.Product, error) {
	products, err := s.productRepo.GetByBatchNumber(ctx, strings.TrimSpace(batchNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to get products by batch: %w", err)
	}
	return products, nil
}

// optionalString trims a value and maps blanks to nil
func optionalString(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
