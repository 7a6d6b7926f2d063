package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/inventory"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

const saleEntity = "sale"

type saleRepository struct {
	store *Store
}

func (r *saleRepository) Create(ctx context.Context, sale *models.Sale, idempotencyKey string) (*models.Sale, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		if id, ok := s.saleKeys[idempotencyKey]; ok {
			if existing, ok := s.sales[id]; ok {
				s.logger.WithFields(logrus.Fields{
					"sale_id":         existing.ID,
					"idempotency_key": idempotencyKey,
				}).Info("Replayed sale create ignored")
				return existing.Clone(), true, nil
			}
		}
	}

	record := sale.Clone()
	if record.ID == "" || s.sales[record.ID] != nil {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	product := s.products[record.ProductID]
	if product != nil && record.BatchNumber == "" {
		record.BatchNumber = product.BatchNumber
	}

	if err := record.Validate(); err != nil {
		return nil, false, repositories.ValidationError(saleEntity, record.ID, err)
	}

	if product != nil {
		inventory.ApplyNewSale(product, record.Quantity)
		product.UpdateTimestamp()
	} else {
		s.logger.WithFields(logrus.Fields{
			"sale_id":    record.ID,
			"product_id": record.ProductID,
		}).Warn("Sale references unknown product, stock not adjusted")
	}

	s.sales[record.ID] = record
	s.saleOrder = append(s.saleOrder, record.ID)
	if idempotencyKey != "" {
		s.saleKeys[idempotencyKey] = record.ID
	}

	return record.Clone(), false, nil
}

func (r *saleRepository) GetByID(ctx context.Context, id string) (*models.Sale, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if err := requireID("get", saleEntity, id); err != nil {
		return nil, err
	}

	sale, ok := s.sales[id]
	if !ok {
		return nil, repositories.NotFoundError(saleEntity, id)
	}
	return sale.Clone(), nil
}

func (r *saleRepository) Update(ctx context.Context, id string, fn func(sale *models.Sale) error) (*models.Sale, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if err := requireID("update", saleEntity, id); err != nil {
		return nil, err
	}

	current, ok := s.sales[id]
	if !ok {
		return nil, repositories.NotFoundError(saleEntity, id)
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt

	if err := updated.Validate(); err != nil {
		return nil, repositories.ValidationError(saleEntity, id, err)
	}

	// Stock moves only after validation so a rejected edit leaves both records untouched.
	if updated.ProductID == current.ProductID {
		if product := s.products[current.ProductID]; product != nil && updated.Quantity != current.Quantity {
			inventory.ApplySaleEdit(product, current.Quantity, updated.Quantity)
			product.UpdateTimestamp()
		}
	} else {
		if previous := s.products[current.ProductID]; previous != nil {
			inventory.ReverseSale(previous, current.Quantity)
			previous.UpdateTimestamp()
		}
		if next := s.products[updated.ProductID]; next != nil {
			inventory.ApplyNewSale(next, updated.Quantity)
			next.UpdateTimestamp()
		} else {
			s.logger.WithFields(logrus.Fields{
				"sale_id":    id,
				"product_id": updated.ProductID,
			}).Warn("Sale moved to unknown product, stock not adjusted")
		}
	}

	s.sales[id] = updated
	return updated.Clone(), nil
}

func (r *saleRepository) List(ctx context.Context) ([]*models.Sale, error) {
	return r.filter(ctx, func(*models.Sale) bool { return true })
}

func (r *saleRepository) GetByProductID(ctx context.Context, productID string) ([]*models.Sale, error) {
	return r.filter(ctx, func(sale *models.Sale) bool {
		return sale.ProductID == productID
	})
}

func (r *saleRepository) GetByDateRange(ctx context.Context, startDate, endDate string) ([]*models.Sale, error) {
	return r.filter(ctx, func(sale *models.Sale) bool {
		return sale.SaleDate >= startDate && sale.SaleDate <= endDate
	})
}

func (r *saleRepository) filter(ctx context.Context, keep func(*models.Sale) bool) ([]*models.Sale, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}

	result := make([]*models.Sale, 0, len(s.saleOrder))
	for _, id := range s.saleOrder {
		if sale := s.sales[id]; keep(sale) {
			result = append(result, sale.Clone())
		}
	}
	return result, nil
}
