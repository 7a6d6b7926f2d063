// Package migration loads JSON snapshots into the entity store.
package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/inventory"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// Snapshot is the JSON document a seed file holds
type Snapshot struct {
	Products []*models.Product   `json:"products"`
	Sales    []*models.Sale      `json:"sales"`
	Audits   []*models.Audit     `json:"audits"`
	Settings *models.AppSettings `json:"settings,omitempty"`
}

// ImportResult contains the results of an import
type ImportResult struct {
	ProductsProcessed int
	SalesProcessed    int
	AuditsProcessed   int
	SettingsApplied   bool
	Errors            []string
	Warnings          []string
}

// SeedImporter loads a snapshot file into a repository manager
type SeedImporter struct {
	repos  repositories.RepositoryManager
	logger *logrus.Logger
	path   string
}

// NewSeedImporter creates a new seed importer
func NewSeedImporter(repos repositories.RepositoryManager, path string, logger *logrus.Logger) *SeedImporter {
	if logger == nil {
		logger = logrus.New()
	}
	return &SeedImporter{
		repos:  repos,
		logger: logger,
		path:   path,
	}
}

// SeedFileExists reports whether the seed file is present
func (m *SeedImporter) SeedFileExists() bool {
	info, err := os.Stat(m.path)
	return err == nil && !info.IsDir()
}

// ReadSnapshot decodes the seed file
func (m *SeedImporter) ReadSnapshot() (*Snapshot, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal seed file: %w", err)
	}
	return &snapshot, nil
}

// Import reads the seed file and loads it into the store
func (m *SeedImporter) Import(ctx context.Context) (*ImportResult, error) {
	m.logger.WithField("path", m.path).Info("Starting seed import...")

	snapshot, err := m.ReadSnapshot()
	if err != nil {
		return nil, err
	}
	return m.Load(ctx, snapshot)
}

// Load writes a snapshot into the store. Snapshot quantities already reflect
// the snapshot's sales, so each product is created with its valid sales added
// back and those sales are then replayed through the sale repository. A sale
// the store still refuses is taken back off its product.
func (m *SeedImporter) Load(ctx context.Context, snapshot *Snapshot) (*ImportResult, error) {
	result := &ImportResult{
		Errors:   make([]string, 0),
		Warnings: make([]string, 0),
	}

	sales := make([]*models.Sale, 0, len(snapshot.Sales))
	sold := make(map[string]float64)
	for _, sale := range snapshot.Sales {
		record, err := m.prepareSale(sale)
		if err != nil {
			m.warn(result, err, "sale")
			continue
		}
		sales = append(sales, record)
		sold[record.ProductID] = inventory.SumQuantity(sold[record.ProductID], record.Quantity)
	}

	for _, product := range snapshot.Products {
		if err := m.validateProduct(product); err != nil {
			m.warn(result, err, "product")
			continue
		}

		record := product.Clone()
		record.Quantity = inventory.SumQuantity(record.Quantity, sold[record.ID])
		if _, _, err := m.repos.Products().Create(ctx, record, ""); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Errors = append(result.Errors, fmt.Sprintf("product %s: %v", product.ID, err))
			m.logger.WithError(err).WithField("product_id", product.ID).Error("Failed to import product")
			continue
		}
		result.ProductsProcessed++
	}

	for _, record := range sales {
		if _, _, err := m.repos.Sales().Create(ctx, record, ""); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Errors = append(result.Errors, fmt.Sprintf("sale %s: %v", record.ID, err))
			m.logger.WithError(err).WithField("sale_id", record.ID).Error("Failed to import sale")
			m.withdraw(ctx, record)
			continue
		}
		result.SalesProcessed++
	}

	for _, audit := range snapshot.Audits {
		if audit == nil || audit.ID == "" {
			m.warn(result, fmt.Errorf("audit ID is required"), "audit")
			continue
		}
		if _, _, err := m.repos.Audits().Create(ctx, audit, ""); err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			result.Errors = append(result.Errors, fmt.Sprintf("audit %s: %v", audit.ID, err))
			m.logger.WithError(err).WithField("audit_id", audit.ID).Error("Failed to import audit")
			continue
		}
		result.AuditsProcessed++
	}

	if snapshot.Settings != nil {
		seeded := snapshot.Settings
		_, err := m.repos.Settings().Update(ctx, func(s *models.AppSettings) error {
			s.AppName = seeded.AppName
			s.LogoURL = seeded.LogoURL
			s.Theme = seeded.Theme
			s.Language = seeded.Language
			return nil
		})
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("settings: %v", err))
			m.logger.WithError(err).Error("Failed to import settings")
		} else {
			result.SettingsApplied = true
		}
	}

	m.logger.WithFields(logrus.Fields{
		"products": result.ProductsProcessed,
		"sales":    result.SalesProcessed,
		"audits":   result.AuditsProcessed,
		"settings": result.SettingsApplied,
		"errors":   len(result.Errors),
	}).Info("Seed import completed")

	return result, nil
}

func (m *SeedImporter) warn(result *ImportResult, err error, entity string) {
	m.logger.WithError(err).WithField("entity", entity).Warn("Invalid seed record, skipping")
	result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", entity, err))
}

func (m *SeedImporter) validateProduct(product *models.Product) error {
	if product == nil || product.ID == "" {
		return fmt.Errorf("product ID is required")
	}
	if product.StrainName == "" {
		return fmt.Errorf("strain name is required")
	}
	if product.UnitPrice < 0 {
		return fmt.Errorf("unit price cannot be negative")
	}
	return nil
}

// prepareSale copies sale with its total recomputed and checks it against
// the rules the sale repository enforces
func (m *SeedImporter) prepareSale(sale *models.Sale) (*models.Sale, error) {
	if sale == nil || sale.ID == "" {
		return nil, fmt.Errorf("sale ID is required")
	}

	record := sale.Clone()
	record.TotalAmount = inventory.LineTotal(record.Quantity, record.UnitPrice)
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("sale %s: %w", sale.ID, err)
	}
	return record, nil
}

// withdraw takes a sale the store refused back off its product's seeded stock
func (m *SeedImporter) withdraw(ctx context.Context, sale *models.Sale) {
	_, err := m.repos.Products().Update(ctx, sale.ProductID, func(p *models.Product) error {
		inventory.ApplyNewSale(p, sale.Quantity)
		return nil
	})
	if err != nil && !repositories.IsNotFound(err) {
		m.logger.WithError(err).WithFields(logrus.Fields{
			"sale_id":    sale.ID,
			"product_id": sale.ProductID,
		}).Error("Failed to restore seeded stock after rejected sale")
	}
}
