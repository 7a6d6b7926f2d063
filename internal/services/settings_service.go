package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// settingsService implements the SettingsService interface
type settingsService struct {
	settingsRepo repositories.SettingsRepository
	validator    *validator.Validate
}

// NewSettingsService creates a new settings service instance
func NewSettingsService(settingsRepo repositories.SettingsRepository) SettingsService {
	return &settingsService{
		settingsRepo: settingsRepo,
		validator:    newValidator(),
	}
}

// GetSettings returns the settings singleton
func (s *settingsService) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return settings, nil
}

// UpdateSettings overwrites the provided settings fields in place
func (s *settingsService) UpdateSettings(ctx context.Context, req *UpdateSettingsRequest) (*models.AppSettings, error) {
	if req == nil {
		return nil, newValidationError("Invalid settings data", fmt.Errorf("request body is required"))
	}

	if err := s.validator.Struct(req); err != nil {
		return nil, newValidationError("Invalid settings data", err)
	}

	settings, err := s.settingsRepo.Update(ctx, func(st *models.AppSettings) error {
		req.ApplyTo(st)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return settings, nil
}
