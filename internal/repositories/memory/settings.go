package memory

import (
	"context"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

type settingsRepository struct {
	store *Store
}

func (r *settingsRepository) Get(ctx context.Context) (*models.AppSettings, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}
	return s.settings.Clone(), nil
}

func (r *settingsRepository) Update(ctx context.Context, fn func(settings *models.AppSettings) error) (*models.AppSettings, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.usable(ctx); err != nil {
		return nil, err
	}

	updated := s.settings.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = models.SettingsID
	updated.UpdatedAt = s.settings.UpdatedAt

	if err := updated.Validate(); err != nil {
		return nil, repositories.ValidationError("settings", models.SettingsID, err)
	}
	updated.UpdateTimestamp()

	s.settings = updated
	return updated.Clone(), nil
}
