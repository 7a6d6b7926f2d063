package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// auditService implements the AuditService interface
type auditService struct {
	auditRepo repositories.AuditRepository
	validator *validator.Validate
}

// NewAuditService creates a new audit service instance
func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &auditService{
		auditRepo: auditRepo,
		validator: newValidator(),
	}
}

// CreateAudit opens a new audit; status always starts as pending
func (s *auditService) CreateAudit(ctx context.Context, req *CreateAuditRequest, idempotencyKey string) (*models.Audit, bool, error) {
	if req == nil {
		return nil, false, newValidationError("Invalid audit data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, false, newValidationError("Invalid audit data", err)
	}

	created, replayed, err := s.auditRepo.Create(ctx, req.NewAudit(), idempotencyKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create audit: %w", err)
	}
	return created, replayed, nil
}

// GetAudit retrieves an audit by ID
func (s *auditService) GetAudit(ctx context.Context, id string) (*models.Audit, error) {
	audit, err := s.auditRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}
	return audit, nil
}

// UpdateAudit applies status transitions, notes and discrepancy changes
func (s *auditService) UpdateAudit(ctx context.Context, id string, req *UpdateAuditRequest) (*models.Audit, error) {
	if req == nil {
		return nil, newValidationError("Invalid audit data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("Invalid audit data", err)
	}

	audit, err := s.auditRepo.Update(ctx, id, func(a *models.Audit) error {
		req.ApplyTo(a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update audit: %w", err)
	}
	return audit, nil
}

// ListAudits retrieves all audits
func (s *auditService) ListAudits(ctx context.Context) ([]*models.Audit, error) {
	audits, err := s.auditRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	return audits, nil
}

// GetAuditsByStatus retrieves audits in the given status
func (s *auditService) GetAuditsByStatus(ctx context.Context, status models.AuditStatus) ([]*models.Audit, error) {
	if err := models.ValidateEnum(string(status), models.AuditStatuses, "status"); err != nil {
		return nil, newValidationError("Invalid audit status", err)
	}

	audits, err := s.auditRepo.GetByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("failed to get audits by status: %w", err)
	}
	return audits, nil
}
