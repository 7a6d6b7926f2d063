package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/inventory"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// ErrDateRangeRequired is returned when a date range query lacks a bound
var ErrDateRangeRequired = &ValidationError{Message: "Start date and end date are required"}

// saleService implements the SaleService interface
type saleService struct {
	saleRepo  repositories.SaleRepository
	validator *validator.Validate
	logger    *logrus.Logger
}

// NewSaleService creates a new sale service instance
func NewSaleService(saleRepo repositories.SaleRepository, logger *logrus.Logger) SaleService {
	if logger == nil {
		logger = logrus.New()
	}
	return &saleService{
		saleRepo:  saleRepo,
		validator: newValidator(),
		logger:    logger,
	}
}

// CreateSale records a sale; the store removes its quantity from the product.
// The total is always recomputed from quantity and unit price.
func (s *saleService) CreateSale(ctx context.Context, req *CreateSaleRequest, idempotencyKey string) (*models.Sale, bool, error) {
	if req == nil {
		return nil, false, newValidationError("Invalid sale data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, false, newValidationError("Invalid sale data", err)
	}

	sale := req.NewSale()
	sale.TotalAmount = s.reconcileTotal(sale, req.TotalAmount)

	created, replayed, err := s.saleRepo.Create(ctx, sale, idempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create sale: %w", err)
	}

	if !replayed {
		s.logger.WithFields(logrus.Fields{
			"sale_id":    created.ID,
			"product_id": created.ProductID,
			"quantity":   created.Quantity,
			"total":      created.TotalAmount,
		}).Info("Sale recorded")
	}

	return created, replayed, nil
}

// GetSale retrieves a sale by ID
func (s *saleService) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	sale, err := s.saleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	return sale, nil
}

// UpdateSale edits a sale; the store reverses the old quantity and applies the new one
func (s *saleService) UpdateSale(ctx context.Context, id string, req *UpdateSaleRequest) (*models.Sale, error) {
	if req == nil {
		return nil, newValidationError("Invalid sale data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("Invalid sale data", err)
	}

	var previousQuantity float64
	sale, err := s.saleRepo.Update(ctx, id, func(sl *models.Sale) error {
		previousQuantity = sl.Quantity
		req.ApplyTo(sl)
		sl.TotalAmount = s.reconcileTotal(sl, req.TotalAmount)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update sale: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"sale_id":      sale.ID,
		"product_id":   sale.ProductID,
		"old_quantity": previousQuantity,
		"new_quantity": sale.Quantity,
		"stock_delta":  inventory.SaleDelta(previousQuantity, sale.Quantity),
	}).Info("Sale edited")

	return sale, nil
}

// ListSales retrieves all sales
func (s *saleService) ListSales(ctx context.Context) ([]*models.Sale, error) {
	sales, err := s.saleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return sales, nil
}

// GetSalesByDateRange returns sales whose saleDate lies in [startDate, endDate].
// The comparison is on the raw strings, so callers must use one ISO-8601 format.
func (s *saleService) GetSalesByDateRange(ctx context.Context, startDate, endDate string) ([]*models.Sale, error) {
	if startDate == "" || endDate == "" {
		return nil, ErrDateRangeRequired
	}

	sales, err := s.saleRepo.GetByDateRange(ctx, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("failed to get sales by date range: %w", err)
	}
	return sales, nil
}

// GetSalesByProduct returns all sales recorded against a product
func (s *saleService) GetSalesByProduct(ctx context.Context, productID string) ([]*models.Sale, error) {
	sales, err := s.saleRepo.GetByProductID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sales by product: %w", err)
	}
	return sales, nil
}

// reconcileTotal returns quantity * unitPrice, logging client totals that disagree
func (s *saleService) reconcileTotal(sale *models.Sale, claimed *float64) float64 {
	total := inventory.LineTotal(sale.Quantity, sale.UnitPrice)
	if claimed != nil && !inventory.MoneyEqual(*claimed, total) {
		s.logger.WithFields(logrus.Fields{
			"sale_id":        sale.ID,
			"claimed_total":  *claimed,
			"computed_total": total,
		}).Warn("Client sale total disagrees with quantity * unit price, using computed total")
	}
	return total
}
