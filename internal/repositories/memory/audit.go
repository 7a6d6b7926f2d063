package memory

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

const auditEntity = "audit"

type auditRepository struct {
	store *Store
}

func (r *auditRepository) Create(ctx context.Context, audit *models.Audit, idempotencyKey string) (*models.Audit, bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, false, err
	}

	if idempotencyKey != "" {
		if id, ok := s.auditKeys[idempotencyKey]; ok {
			if existing, ok := s.audits[id]; ok {
				return existing.Clone(), true, nil
			}
		}
	}

	record := audit.Clone()
	if record.ID == "" || s.audits[record.ID] != nil {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if err := record.Validate(); err != nil {
		return nil, false, repositories.ValidationError(auditEntity, record.ID, err)
	}

	s.audits[record.ID] = record
	s.auditOrder = append(s.auditOrder, record.ID)
	if idempotencyKey != "" {
		s.auditKeys[idempotencyKey] = record.ID
	}

	return record.Clone(), false, nil
}

func (r *auditRepository) GetByID(ctx context.Context, id string) (*models.Audit, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if err := requireID("get", auditEntity, id); err != nil {
		return nil, err
	}

	audit, ok := s.audits[id]
	if !ok {
		return nil, repositories.NotFoundError(auditEntity, id)
	}
	return audit.Clone(), nil
}

func (r *auditRepository) Update(ctx context.Context, id string, fn func(a *models.Audit) error) (*models.Audit, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	if err := requireID("update", auditEntity, id); err != nil {
		return nil, err
	}

	current, ok := s.audits[id]
	if !ok {
		return nil, repositories.NotFoundError(auditEntity, id)
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt

	if err := updated.Validate(); err != nil {
		return nil, repositories.ValidationError(auditEntity, id, err)
	}

	s.audits[id] = updated
	return updated.Clone(), nil
}

func (r *auditRepository) List(ctx context.Context) ([]*models.Audit, error) {
	return r.filter(ctx, "")
}

func (r *auditRepository) GetByStatus(ctx context.Context, status models.AuditStatus) ([]*models.Audit, error) {
	return r.filter(ctx, status)
}

func (r *auditRepository) filter(ctx context.Context, status models.AuditStatus) ([]*models.Audit, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}

	result := make([]*models.Audit, 0, len(s.auditOrder))
	for _, id := range s.auditOrder {
		audit := s.audits[id]
		if status != "" && audit.Status != status {
			continue
		}
		result = append(result, audit.Clone())
	}
	return result, nil
}
