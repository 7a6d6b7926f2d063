package memory

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

const productEntity = "product"

type productRepository struct {
	store *Store
}

func (r *productRepository) Create(ctx context.Context, product *models.Product, idempotencyKey string) (*models.Product, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		if id, ok := s.productKeys[idempotencyKey]; ok {
			if existing, ok := s.products[id]; ok {
				return existing.Clone(), true, nil
			}
		}
	}

	record := product.Clone()
	if record.ID == "" || s.products[record.ID] != nil {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.UpdatedAt.Before(record.CreatedAt) {
		record.UpdatedAt = record.CreatedAt
	}

	if err := record.Validate(); err != nil {
		return nil, false, repositories.ValidationError(productEntity, record.ID, err)
	}

	s.products[record.ID] = record
	s.productOrder = append(s.productOrder, record.ID)
	if idempotencyKey != "" {
		s.productKeys[idempotencyKey] = record.ID
	}

	return record.Clone(), false, nil
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if err := requireID("get", productEntity, id); err != nil {
		return nil, err
	}

	product, ok := s.products[id]
	if !ok {
		return nil, repositories.NotFoundError(productEntity, id)
	}
	return product.Clone(), nil
}

func (r *productRepository) Update(ctx context.Context, id string, fn func(p *models.Product) error) (*models.Product, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if err := requireID("update", productEntity, id); err != nil {
		return nil, err
	}

	current, ok := s.products[id]
	if !ok {
		return nil, repositories.NotFoundError(productEntity, id)
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = current.UpdatedAt

	if err := updated.Validate(); err != nil {
		return nil, repositories.ValidationError(productEntity, id, err)
	}
	updated.UpdateTimestamp()

	s.products[id] = updated
	return updated.Clone(), nil
}

func (r *productRepository) Delete(ctx context.Context, id string) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return false, err
	}
	if err := requireID("delete", productEntity, id); err != nil {
		return false, err
	}

	if _, ok := s.products[id]; !ok {
		return false, nil
	}
	delete(s.products, id)
	s.productOrder = removeID(s.productOrder, id)
	return true, nil
}

func (r *productRepository) List(ctx context.Context) ([]*models.Product, error) {
	return r.filter(ctx, func(*models.Product) bool { return true }, 0)
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return 0, err
	}
	return int64(len(s.products)), nil
}

func (r *productRepository) Search(ctx context.Context, query string, limit int) ([]*models.Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	return r.filter(ctx, func(p *models.Product) bool {
		return q == "" || strings.Contains(strings.ToLower(p.GetSearchableText()), q)
	}, limit)
}

func (r *productRepository) GetByBatchNumber(ctx context.Context, batchNumber string) ([]*models.Product, error) {
	return r.filter(ctx, func(p *models.Product) bool {
		return p.BatchNumber == batchNumber
	}, 0)
}

func (r *productRepository) filter(ctx context.Context, keep func(*models.Product) bool, limit int) ([]*models.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}

	result := make([]*models.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		p := s.products[id]
		if !keep(p) {
			continue
		}
		result = append(result, p.Clone())
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
