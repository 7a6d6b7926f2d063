// Package memory implements the repositories on process-lifetime maps.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// Store is the authoritative in-memory store. One mutex guards every
// collection so a sale and the product it references change together.
type Store struct {
	mu     sync.RWMutex
	closed bool
	logger *logrus.Logger

	products     map[string]*models.Product
	productOrder []string
	productKeys  map[string]string

	sales     map[string]*models.Sale
	saleOrder []string
	saleKeys  map[string]string

	audits     map[string]*models.Audit
	auditOrder []string
	auditKeys  map[string]string

	settings *models.AppSettings

	productRepo  *productRepository
	saleRepo     *saleRepository
	auditRepo    *auditRepository
	settingsRepo *settingsRepository
}

// NewStore creates an empty store holding the default settings
func NewStore(logger *logrus.Logger) *Store {
	if logger == nil {
		logger = logrus.New()
	}

	s := &Store{
		logger:      logger,
		products:    make(map[string]*models.Product),
		productKeys: make(map[string]string),
		sales:       make(map[string]*models.Sale),
		saleKeys:    make(map[string]string),
		audits:      make(map[string]*models.Audit),
		auditKeys:   make(map[string]string),
		settings:    models.DefaultAppSettings(),
	}
	s.productRepo = &productRepository{store: s}
	s.saleRepo = &saleRepository{store: s}
	s.auditRepo = &auditRepository{store: s}
	s.settingsRepo = &settingsRepository{store: s}
	return s
}

var _ repositories.RepositoryManager = (*Store)(nil)

// Products returns the product repository
func (s *Store) Products() repositories.ProductRepository { return s.productRepo }

// Sales returns the sale repository
func (s *Store) Sales() repositories.SaleRepository { return s.saleRepo }

// Audits returns the audit repository
func (s *Store) Audits() repositories.AuditRepository { return s.auditRepo }

// Settings returns the settings repository
func (s *Store) Settings() repositories.SettingsRepository { return s.settingsRepo }

// Health reports whether the store still accepts operations
func (s *Store) Health(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return repositories.ErrClosed
	}
	return nil
}

// Close marks the store closed; later operations fail with ErrClosed
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Stats returns the number of stored records per entity
func (s *Store) Stats() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"products": len(s.products),
		"sales":    len(s.sales),
		"audits":   len(s.audits),
	}
}

// usable must be called with the lock held
func (s *Store) usable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return repositories.ErrClosed
	}
	return nil
}

func requireID(op, entity, id string) error {
	if strings.TrimSpace(id) == "" {
		return repositories.InvalidIDError(op, entity)
	}
	return nil
}

func removeID(order []string, id string) []string {
	for i, v := range order {
		if v == id {
			return append(order[:i], order[i+1:]...)
		}
	}
	return order
}
