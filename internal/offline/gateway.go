package offline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/adapters/remote"
	"cannabistrack-api/internal/inventory"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/services"
)

// API is the part of the remote client the offline tier calls
type API interface {
	ListProducts(ctx context.Context) ([]*models.Product, error)
	CreateProduct(ctx context.Context, req *services.CreateProductRequest, key string) (*models.Product, error)
	UpdateProduct(ctx context.Context, id string, req *services.UpdateProductRequest) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error

	ListSales(ctx context.Context) ([]*models.Sale, error)
	CreateSale(ctx context.Context, req *services.CreateSaleRequest, key string) (*models.Sale, error)
	UpdateSale(ctx context.Context, id string, req *services.UpdateSaleRequest) (*models.Sale, error)

	ListAudits(ctx context.Context) ([]*models.Audit, error)
	CreateAudit(ctx context.Context, req *services.CreateAuditRequest, key string) (*models.Audit, error)
	UpdateAudit(ctx context.Context, id string, req *services.UpdateAuditRequest) (*models.Audit, error)

	GetSettings(ctx context.Context) (*models.AppSettings, error)
	UpdateSettings(ctx context.Context, req *services.UpdateSettingsRequest) (*models.AppSettings, error)
}

// Gateway performs writes against the server and falls back to the cache
// when the server cannot be reached. The returned bool reports whether the
// write was queued locally instead of applied remotely.
type Gateway struct {
	api    API
	cache  *Cache
	logger *logrus.Logger
	newID  func() string
}

// NewGateway creates a gateway over api and cache
func NewGateway(api API, cache *Cache, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{
		api:    api,
		cache:  cache,
		logger: logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Cache returns the underlying cache
func (g *Gateway) Cache() *Cache {
	return g.cache
}

// Refresh pulls every collection from the server into the cache.
// Rows with unsent local changes are left as they are.
func (g *Gateway) Refresh(ctx context.Context) (*RefreshCounts, error) {
	products, err := g.api.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	sales, err := g.api.ListSales(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sales: %w", err)
	}
	audits, err := g.api.ListAudits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch audits: %w", err)
	}
	settings, err := g.api.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}

	counts, err := g.cache.merge(ctx, products, sales, audits, settings)
	if err != nil {
		return nil, err
	}

	g.logger.WithFields(logrus.Fields{
		"products": counts.Products,
		"sales":    counts.Sales,
		"audits":   counts.Audits,
		"settings": counts.Settings,
	}).Info("Offline cache refreshed")
	return counts, nil
}

// CreateProduct creates a product. The local id doubles as the idempotency key
// so a queued create that already reached the server is not applied twice.
func (g *Gateway) CreateProduct(ctx context.Context, req *services.CreateProductRequest) (*models.Product, bool, error) {
	if err := services.ValidateRequest("Invalid product data", req); err != nil {
		return nil, false, err
	}

	localID := g.newID()
	created, err := g.api.CreateProduct(ctx, req, localID)
	if err == nil {
		g.mirror(EntityProducts, created.ID, g.cache.SaveProduct(ctx, created, Confirmed))
		return created, false, nil
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}

	product := req.NewProduct()
	product.ID = localID
	if err := g.cache.SaveProduct(ctx, product, SyncState{IdempotencyKey: localID}); err != nil {
		return nil, false, fmt.Errorf("failed to queue product: %w", err)
	}
	g.queued(EntityProducts, localID, ActionCreate, err)
	return product, true, nil
}

// UpdateProduct applies a partial product update
func (g *Gateway) UpdateProduct(ctx context.Context, id string, req *services.UpdateProductRequest) (*models.Product, bool, error) {
	if err := services.ValidateRequest("Invalid product data", req); err != nil {
		return nil, false, err
	}

	entry, cacheErr := g.cache.ProductEntry(ctx, id)
	if cacheErr == nil && entry.State.Deleted {
		return nil, false, notFound(productTable, id)
	}
	if cacheErr == nil && !entry.State.Confirmed {
		return g.updateProductLocally(ctx, entry, req)
	}

	updated, err := g.api.UpdateProduct(ctx, id, req)
	if err == nil {
		g.mirror(EntityProducts, id, g.cache.SaveProduct(ctx, updated, Confirmed))
		return updated, false, nil
	}
	if remote.IsNotFound(err) {
		g.forget(EntityProducts, id, dropErr(g.cache.DeleteProduct(ctx, id)))
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}
	if cacheErr != nil {
		return nil, false, cacheErr
	}

	g.queued(EntityProducts, id, ActionUpdate, err)
	return g.updateProductLocally(ctx, entry, req)
}

func (g *Gateway) updateProductLocally(ctx context.Context, entry Entry[*models.Product], req *services.UpdateProductRequest) (*models.Product, bool, error) {
	product := entry.Record
	req.ApplyTo(product)
	product.UpdateTimestamp()

	state := entry.State
	if state.Confirmed {
		state.Dirty = true
		state.QuantityEdited = state.QuantityEdited || req.Quantity != nil
	}
	if err := g.cache.SaveProduct(ctx, product, state); err != nil {
		return nil, false, fmt.Errorf("failed to queue product update: %w", err)
	}
	return product, true, nil
}

// DeleteProduct removes a product
func (g *Gateway) DeleteProduct(ctx context.Context, id string) (bool, error) {
	entry, cacheErr := g.cache.ProductEntry(ctx, id)
	if cacheErr == nil && !entry.State.Confirmed {
		if _, err := g.cache.DeleteProduct(ctx, id); err != nil {
			return false, fmt.Errorf("failed to discard queued product: %w", err)
		}
		return false, nil
	}
	if cacheErr == nil && entry.State.Deleted {
		return true, nil
	}

	err := g.api.DeleteProduct(ctx, id)
	if err == nil || remote.IsNotFound(err) {
		g.forget(EntityProducts, id, dropErr(g.cache.DeleteProduct(ctx, id)))
		return false, err
	}
	if !remote.IsTransport(err) {
		return false, err
	}

	product := &models.Product{ID: id}
	state := SyncState{Confirmed: true}
	if cacheErr == nil {
		product = entry.Record
		state = entry.State
	}
	state.Deleted = true
	if err := g.cache.SaveProduct(ctx, product, state); err != nil {
		return false, fmt.Errorf("failed to queue product delete: %w", err)
	}
	g.queued(EntityProducts, id, ActionDelete, err)
	return true, nil
}

// CreateSale records a sale and projects its quantity onto the cached product
func (g *Gateway) CreateSale(ctx context.Context, req *services.CreateSaleRequest) (*models.Sale, bool, error) {
	if err := services.ValidateRequest("Invalid sale data", req); err != nil {
		return nil, false, err
	}

	localID := g.newID()
	created, err := g.api.CreateSale(ctx, req, localID)
	if err == nil {
		g.mirror(EntitySales, created.ID, g.cache.SaveSale(ctx, created, Confirmed))
		g.project(ctx, nil, created)
		return created, false, nil
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}

	sale := req.NewSale()
	sale.ID = localID
	if sale.BatchNumber == "" {
		if product, perr := g.cache.GetProduct(ctx, sale.ProductID); perr == nil {
			sale.BatchNumber = product.BatchNumber
		}
	}
	if err := g.cache.SaveSale(ctx, sale, SyncState{IdempotencyKey: localID}); err != nil {
		return nil, false, fmt.Errorf("failed to queue sale: %w", err)
	}
	g.project(ctx, nil, sale)
	g.queued(EntitySales, localID, ActionCreate, err)
	return sale, true, nil
}

// UpdateSale edits a sale and projects the quantity change onto the cached product
func (g *Gateway) UpdateSale(ctx context.Context, id string, req *services.UpdateSaleRequest) (*models.Sale, bool, error) {
	if err := services.ValidateRequest("Invalid sale data", req); err != nil {
		return nil, false, err
	}

	entry, cacheErr := g.cache.SaleEntry(ctx, id)
	if cacheErr == nil && !entry.State.Confirmed {
		return g.updateSaleLocally(ctx, entry, req)
	}

	updated, err := g.api.UpdateSale(ctx, id, req)
	if err == nil {
		g.mirror(EntitySales, id, g.cache.SaveSale(ctx, updated, Confirmed))
		if cacheErr == nil {
			g.project(ctx, entry.Record, updated)
		}
		return updated, false, nil
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}
	if cacheErr != nil {
		return nil, false, cacheErr
	}

	g.queued(EntitySales, id, ActionUpdate, err)
	return g.updateSaleLocally(ctx, entry, req)
}

func (g *Gateway) updateSaleLocally(ctx context.Context, entry Entry[*models.Sale], req *services.UpdateSaleRequest) (*models.Sale, bool, error) {
	previous := entry.Record.Clone()
	sale := entry.Record
	req.ApplyTo(sale)

	state := entry.State
	if state.Confirmed {
		state.Dirty = true
	}
	if err := g.cache.SaveSale(ctx, sale, state); err != nil {
		return nil, false, fmt.Errorf("failed to queue sale update: %w", err)
	}
	g.project(ctx, previous, sale)
	return sale, true, nil
}

// CreateAudit opens an audit
func (g *Gateway) CreateAudit(ctx context.Context, req *services.CreateAuditRequest) (*models.Audit, bool, error) {
	if err := services.ValidateRequest("Invalid audit data", req); err != nil {
		return nil, false, err
	}

	localID := g.newID()
	created, err := g.api.CreateAudit(ctx, req, localID)
	if err == nil {
		g.mirror(EntityAudits, created.ID, g.cache.SaveAudit(ctx, created, Confirmed))
		return created, false, nil
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}

	audit := req.NewAudit()
	audit.ID = localID
	if err := g.cache.SaveAudit(ctx, audit, SyncState{IdempotencyKey: localID}); err != nil {
		return nil, false, fmt.Errorf("failed to queue audit: %w", err)
	}
	g.queued(EntityAudits, localID, ActionCreate, err)
	return audit, true, nil
}

// UpdateAudit updates an audit
func (g *Gateway) UpdateAudit(ctx context.Context, id string, req *services.UpdateAuditRequest) (*models.Audit, bool, error) {
	if err := services.ValidateRequest("Invalid audit data", req); err != nil {
		return nil, false, err
	}

	entry, cacheErr := g.cache.AuditEntry(ctx, id)
	if cacheErr == nil && !entry.State.Confirmed {
		return g.updateAuditLocally(ctx, entry, req)
	}

	updated, err := g.api.UpdateAudit(ctx, id, req)
	if err == nil {
		g.mirror(EntityAudits, id, g.cache.SaveAudit(ctx, updated, Confirmed))
		return updated, false, nil
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}
	if cacheErr != nil {
		return nil, false, cacheErr
	}

	g.queued(EntityAudits, id, ActionUpdate, err)
	return g.updateAuditLocally(ctx, entry, req)
}

func (g *Gateway) updateAuditLocally(ctx context.Context, entry Entry[*models.Audit], req *services.UpdateAuditRequest) (*models.Audit, bool, error) {
	audit := entry.Record
	req.ApplyTo(audit)

	state := entry.State
	if state.Confirmed {
		state.Dirty = true
	}
	if err := g.cache.SaveAudit(ctx, audit, state); err != nil {
		return nil, false, fmt.Errorf("failed to queue audit update: %w", err)
	}
	return audit, true, nil
}

// UpdateSettings updates the settings singleton
func (g *Gateway) UpdateSettings(ctx context.Context, req *services.UpdateSettingsRequest) (*models.AppSettings, bool, error) {
	if err := services.ValidateRequest("Invalid settings data", req); err != nil {
		return nil, false, err
	}

	updated, err := g.api.UpdateSettings(ctx, req)
	if err == nil {
		g.mirror(EntitySettings, updated.ID, g.cache.SaveSettings(ctx, updated, Confirmed))
		return updated, false, nil
	}
	if !remote.IsTransport(err) {
		return nil, false, err
	}

	entry, cacheErr := g.cache.SettingsEntry(ctx)
	if cacheErr != nil {
		return nil, false, cacheErr
	}
	settings := entry.Record
	req.ApplyTo(settings)
	settings.UpdateTimestamp()
	if err := g.cache.SaveSettings(ctx, settings, SyncState{Confirmed: true, Dirty: true}); err != nil {
		return nil, false, fmt.Errorf("failed to queue settings update: %w", err)
	}
	g.queued(EntitySettings, settings.ID, ActionUpdate, err)
	return settings, true, nil
}

// project keeps a cached server product in step with a sale change.
// Queued creates are skipped; the sale is taken from the stock their
// create request carries once both reach the server.
func (g *Gateway) project(ctx context.Context, before, after *models.Sale) {
	adjust := func(productID string, fn func(p *models.Product)) {
		entry, err := g.cache.ProductEntry(ctx, productID)
		if err != nil || !entry.State.Confirmed || entry.State.Deleted {
			return
		}
		fn(entry.Record)
		if err := g.cache.SaveProduct(ctx, entry.Record, entry.State); err != nil {
			g.logger.WithError(err).WithField("product_id", productID).Warn("Failed to project sale onto cached product")
		}
	}

	switch {
	case before == nil:
		adjust(after.ProductID, func(p *models.Product) { inventory.ApplyNewSale(p, after.Quantity) })
	case before.ProductID == after.ProductID:
		adjust(after.ProductID, func(p *models.Product) { inventory.ApplySaleEdit(p, before.Quantity, after.Quantity) })
	default:
		adjust(before.ProductID, func(p *models.Product) { inventory.ReverseSale(p, before.Quantity) })
		adjust(after.ProductID, func(p *models.Product) { inventory.ApplyNewSale(p, after.Quantity) })
	}
}

func (g *Gateway) mirror(entity Entity, id string, err error) {
	if err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"entity": entity,
			"id":     id,
		}).Warn("Failed to mirror server record into offline cache")
	}
}

func (g *Gateway) forget(entity Entity, id string, err error) {
	if err != nil {
		g.logger.WithError(err).WithFields(logrus.Fields{
			"entity": entity,
			"id":     id,
		}).Warn("Failed to drop record from offline cache")
	}
}

func (g *Gateway) queued(entity Entity, id, action string, cause error) {
	g.logger.WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
		"action": action,
		"cause":  cause.Error(),
	}).Warn("Server unreachable, change queued for reconciliation")
}

func dropErr(_ bool, err error) error {
	return err
}
