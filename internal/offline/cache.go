// Package offline keeps a local SQLite copy of the server's records and queues
// writes made while the server is unreachable until a reconciliation pass sends them.
package offline

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/database"
	"cannabistrack-api/internal/models"
)

// Entity names a cached collection
type Entity string

const (
	EntityProducts Entity = "products"
	EntitySales    Entity = "sales"
	EntityAudits   Entity = "audits"
	EntitySettings Entity = "settings"
)

// Queued change actions
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// PendingCounts counts the rows waiting for reconciliation
type PendingCounts struct {
	UnconfirmedProducts int `json:"unconfirmedProducts"`
	DirtyProducts       int `json:"dirtyProducts"`
	DeletedProducts     int `json:"deletedProducts"`
	UnconfirmedSales    int `json:"unconfirmedSales"`
	DirtySales          int `json:"dirtySales"`
	UnconfirmedAudits   int `json:"unconfirmedAudits"`
	DirtyAudits         int `json:"dirtyAudits"`
	DirtySettings       int `json:"dirtySettings"`
}

// Total returns the number of queued changes
func (p *PendingCounts) Total() int {
	return p.UnconfirmedProducts + p.DirtyProducts + p.DeletedProducts +
		p.UnconfirmedSales + p.DirtySales +
		p.UnconfirmedAudits + p.DirtyAudits + p.DirtySettings
}

// QueuedChange describes one row waiting for reconciliation
type QueuedChange struct {
	Entity   Entity    `json:"entity"`
	ID       string    `json:"id"`
	Action   string    `json:"action"`
	CachedAt time.Time `json:"cachedAt"`
}

// Cache is the local record store backed by the offline database
type Cache struct {
	db     *database.Manager
	logger *logrus.Logger
	now    func() time.Time
}

// NewCache wraps a connected database manager
func NewCache(db *database.Manager, logger *logrus.Logger) (*Cache, error) {
	if db == nil || !db.IsConnected() {
		return nil, fmt.Errorf("offline cache requires a connected database")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Cache{db: db, logger: logger, now: time.Now}, nil
}

func (c *Cache) conn() (queryer, error) {
	db := c.db.GetDB()
	if db == nil {
		return nil, fmt.Errorf("offline cache database is not connected")
	}
	return db, nil
}

// Products

// GetProducts returns every live cached product
func (c *Cache) GetProducts(ctx context.Context) ([]*models.Product, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return productTable.records(ctx, q, "")
}

// GetProduct returns a live cached product
func (c *Cache) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	entry, err := c.ProductEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.State.Deleted {
		return nil, notFound(productTable, id)
	}
	return entry.Record, nil
}

// ProductEntry returns a cached product row with its sync flags
func (c *Cache) ProductEntry(ctx context.Context, id string) (Entry[*models.Product], error) {
	q, err := c.conn()
	if err != nil {
		return Entry[*models.Product]{}, err
	}
	return productTable.get(ctx, q, id)
}

// SaveProduct upserts a product with the given flags
func (c *Cache) SaveProduct(ctx context.Context, p *models.Product, state SyncState) error {
	q, err := c.conn()
	if err != nil {
		return err
	}
	return productTable.save(ctx, q, p, state, c.now())
}

// DeleteProduct removes the product row and reports whether it was cached
func (c *Cache) DeleteProduct(ctx context.Context, id string) (bool, error) {
	q, err := c.conn()
	if err != nil {
		return false, err
	}
	return productTable.remove(ctx, q, id)
}

// ProductsByStrain returns live products whose strain matches, ignoring case
func (c *Cache) ProductsByStrain(ctx context.Context, strain string) ([]*models.Product, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return productTable.records(ctx, q, "strain_name = ? COLLATE NOCASE", strings.TrimSpace(strain))
}

// ProductsByBatch returns live products in a batch
func (c *Cache) ProductsByBatch(ctx context.Context, batch string) ([]*models.Product, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return productTable.records(ctx, q, "batch_number = ?", strings.TrimSpace(batch))
}

// Sales

// GetSales returns every cached sale
func (c *Cache) GetSales(ctx context.Context) ([]*models.Sale, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return saleTable.records(ctx, q, "")
}

// GetSale returns a cached sale
func (c *Cache) GetSale(ctx context.Context, id string) (*models.Sale, error) {
	entry, err := c.SaleEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return entry.Record, nil
}

// SaleEntry returns a cached sale row with its sync flags
func (c *Cache) SaleEntry(ctx context.Context, id string) (Entry[*models.Sale], error) {
	q, err := c.conn()
	if err != nil {
		return Entry[*models.Sale]{}, err
	}
	return saleTable.get(ctx, q, id)
}

// SaveSale upserts a sale with the given flags
func (c *Cache) SaveSale(ctx context.Context, s *models.Sale, state SyncState) error {
	q, err := c.conn()
	if err != nil {
		return err
	}
	return saleTable.save(ctx, q, s, state, c.now())
}

// SalesByProduct returns the cached sales of a product
func (c *Cache) SalesByProduct(ctx context.Context, productID string) ([]*models.Sale, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return saleTable.records(ctx, q, "product_id = ?", productID)
}

// SalesByDate returns the cached sales made on a calendar day (YYYY-MM-DD)
func (c *Cache) SalesByDate(ctx context.Context, day string) ([]*models.Sale, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return saleTable.records(ctx, q, "substr(sale_date, 1, 10) = ?", day)
}

// Audits

// GetAudits returns every cached audit
func (c *Cache) GetAudits(ctx context.Context) ([]*models.Audit, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return auditTable.records(ctx, q, "")
}

// GetAudit returns a cached audit
func (c *Cache) GetAudit(ctx context.Context, id string) (*models.Audit, error) {
	entry, err := c.AuditEntry(ctx, id)
	if err != nil {
		return nil, err
	}
	return entry.Record, nil
}

// AuditEntry returns a cached audit row with its sync flags
func (c *Cache) AuditEntry(ctx context.Context, id string) (Entry[*models.Audit], error) {
	q, err := c.conn()
	if err != nil {
		return Entry[*models.Audit]{}, err
	}
	return auditTable.get(ctx, q, id)
}

// SaveAudit upserts an audit with the given flags
func (c *Cache) SaveAudit(ctx context.Context, a *models.Audit, state SyncState) error {
	q, err := c.conn()
	if err != nil {
		return err
	}
	return auditTable.save(ctx, q, a, state, c.now())
}

// AuditsByType returns the cached audits of one type
func (c *Cache) AuditsByType(ctx context.Context, auditType models.AuditType) ([]*models.Audit, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return auditTable.records(ctx, q, "audit_type = ?", string(auditType))
}

// AuditsByStatus returns the cached audits in one status
func (c *Cache) AuditsByStatus(ctx context.Context, status models.AuditStatus) ([]*models.Audit, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return auditTable.records(ctx, q, "status = ?", string(status))
}

// Settings

// GetSettings returns the cached settings, or the defaults when none are cached
func (c *Cache) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	entry, err := c.SettingsEntry(ctx)
	if err != nil {
		return nil, err
	}
	return entry.Record, nil
}

// SettingsEntry returns the settings row with its sync flags.
// An empty cache yields the defaults as a settled entry.
func (c *Cache) SettingsEntry(ctx context.Context) (Entry[*models.AppSettings], error) {
	q, err := c.conn()
	if err != nil {
		return Entry[*models.AppSettings]{}, err
	}
	entry, err := settingsTable.get(ctx, q, models.SettingsID)
	if isNotFound(err) {
		return Entry[*models.AppSettings]{Record: models.DefaultAppSettings(), State: Confirmed}, nil
	}
	return entry, err
}

// SaveSettings stores the settings singleton
func (c *Cache) SaveSettings(ctx context.Context, s *models.AppSettings, state SyncState) error {
	q, err := c.conn()
	if err != nil {
		return err
	}
	return settingsTable.save(ctx, q, s, state, c.now())
}

// Sync bookkeeping

// Pending counts the queued changes per kind
func (c *Cache) Pending(ctx context.Context) (*PendingCounts, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}

	counts := &PendingCounts{}
	checks := []struct {
		dst   *int
		count func() (int, error)
	}{
		{&counts.UnconfirmedProducts, func() (int, error) { return productTable.count(ctx, q, unconfirmedRows) }},
		{&counts.DirtyProducts, func() (int, error) { return productTable.count(ctx, q, dirtyRows) }},
		{&counts.DeletedProducts, func() (int, error) { return productTable.count(ctx, q, tombstonedRows) }},
		{&counts.UnconfirmedSales, func() (int, error) { return saleTable.count(ctx, q, unconfirmedRows) }},
		{&counts.DirtySales, func() (int, error) { return saleTable.count(ctx, q, dirtyRows) }},
		{&counts.UnconfirmedAudits, func() (int, error) { return auditTable.count(ctx, q, unconfirmedRows) }},
		{&counts.DirtyAudits, func() (int, error) { return auditTable.count(ctx, q, dirtyRows) }},
		{&counts.DirtySettings, func() (int, error) { return settingsTable.count(ctx, q, dirtyRows) }},
	}
	for _, check := range checks {
		n, err := check.count()
		if err != nil {
			return nil, err
		}
		*check.dst = n
	}
	return counts, nil
}

// Queue lists every change waiting for reconciliation in the order Sync sends them
func (c *Cache) Queue(ctx context.Context) ([]QueuedChange, error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}

	changes := []QueuedChange{}
	products, err := productTable.query(ctx, q, "NOT ("+settledRows+")")
	if err != nil {
		return nil, err
	}
	sales, err := saleTable.query(ctx, q, "NOT ("+settledRows+")")
	if err != nil {
		return nil, err
	}
	audits, err := auditTable.query(ctx, q, "NOT ("+settledRows+")")
	if err != nil {
		return nil, err
	}
	settings, err := settingsTable.query(ctx, q, "NOT ("+settledRows+")")
	if err != nil {
		return nil, err
	}

	for _, e := range products {
		changes = append(changes, queued(EntityProducts, e.Record.ID, e.State, e.CachedAt))
	}
	for _, e := range sales {
		changes = append(changes, queued(EntitySales, e.Record.ID, e.State, e.CachedAt))
	}
	for _, e := range audits {
		changes = append(changes, queued(EntityAudits, e.Record.ID, e.State, e.CachedAt))
	}
	for _, e := range settings {
		changes = append(changes, queued(EntitySettings, e.Record.ID, e.State, e.CachedAt))
	}
	return changes, nil
}

func queued(entity Entity, id string, state SyncState, cachedAt time.Time) QueuedChange {
	action := ActionUpdate
	switch {
	case state.Deleted:
		action = ActionDelete
	case !state.Confirmed:
		action = ActionCreate
	}
	return QueuedChange{Entity: entity, ID: id, Action: action, CachedAt: cachedAt}
}

// queuedSalesFor counts the sales of productID that still have to reach the server
func (c *Cache) queuedSalesFor(ctx context.Context, productID string) (int, error) {
	q, err := c.conn()
	if err != nil {
		return 0, err
	}
	entries, err := saleTable.query(ctx, q, "product_id = ? AND deleted = 0 AND (confirmed = 0 OR dirty = 1)", productID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// Row selections used by the reconciler
const (
	settledRows     = "confirmed = 1 AND dirty = 0 AND deleted = 0"
	unconfirmedRows = "confirmed = 0 AND deleted = 0"
	dirtyRows       = "confirmed = 1 AND dirty = 1 AND deleted = 0"
	tombstonedRows  = "confirmed = 1 AND deleted = 1"
)

// RefreshCounts reports how many server records were written per collection
type RefreshCounts struct {
	Products int `json:"products"`
	Sales    int `json:"sales"`
	Audits   int `json:"audits"`
	Settings int `json:"settings"`
}

// merge writes a server snapshot in one transaction
func (c *Cache) merge(ctx context.Context, products []*models.Product, sales []*models.Sale, audits []*models.Audit, settings *models.AppSettings) (*RefreshCounts, error) {
	counts := &RefreshCounts{}
	now := c.now()

	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		var err error
		if counts.Products, err = productTable.merge(ctx, tx, products, now); err != nil {
			return err
		}
		if counts.Sales, err = saleTable.merge(ctx, tx, sales, now); err != nil {
			return err
		}
		if counts.Audits, err = auditTable.merge(ctx, tx, audits, now); err != nil {
			return err
		}
		if settings != nil {
			counts.Settings, err = settingsTable.merge(ctx, tx, []*models.AppSettings{settings}, now)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to merge server snapshot: %w", err)
	}
	return counts, nil
}

// replaceProduct swaps a locally created product for the server's copy and points
// cached sales and audit discrepancies at the server id. It returns the number of
// sales rewritten.
func (c *Cache) replaceProduct(ctx context.Context, localID string, server *models.Product) (int, error) {
	rewritten := 0
	now := c.now()

	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := productTable.remove(ctx, tx, localID); err != nil {
			return err
		}
		if err := productTable.save(ctx, tx, server, Confirmed, now); err != nil {
			return err
		}
		if localID == server.ID {
			return nil
		}

		sales, err := saleTable.query(ctx, tx, "product_id = ?", localID)
		if err != nil {
			return err
		}
		for _, e := range sales {
			e.Record.ProductID = server.ID
			if err := saleTable.save(ctx, tx, e.Record, e.State, now); err != nil {
				return err
			}
			rewritten++
		}

		audits, err := auditTable.query(ctx, tx, "data LIKE ?", "%"+localID+"%")
		if err != nil {
			return err
		}
		for _, e := range audits {
			changed := false
			for i := range e.Record.Discrepancies {
				if e.Record.Discrepancies[i].ProductID == localID {
					e.Record.Discrepancies[i].ProductID = server.ID
					changed = true
				}
			}
			if !changed {
				continue
			}
			state := e.State
			if state.Confirmed {
				state.Dirty = true
			}
			if err := auditTable.save(ctx, tx, e.Record, state, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to replace product %s: %w", localID, err)
	}
	return rewritten, nil
}

// replaceSale swaps a locally created sale for the server's copy
func (c *Cache) replaceSale(ctx context.Context, localID string, server *models.Sale) error {
	return replaceRow(ctx, c, saleTable, localID, server, Confirmed)
}

// replaceAudit swaps a locally created audit for rec stored under state
func (c *Cache) replaceAudit(ctx context.Context, localID string, rec *models.Audit, state SyncState) error {
	return replaceRow(ctx, c, auditTable, localID, rec, state)
}

func replaceRow[T any](ctx context.Context, c *Cache, t table[T], localID string, rec T, state SyncState) error {
	now := c.now()
	err := c.db.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := t.remove(ctx, tx, localID); err != nil {
			return err
		}
		return t.save(ctx, tx, rec, state, now)
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s %s: %w", t.entity, localID, err)
	}
	return nil
}

func (c *Cache) productEntries(ctx context.Context, where string) ([]Entry[*models.Product], error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return productTable.query(ctx, q, where)
}

func (c *Cache) saleEntries(ctx context.Context, where string) ([]Entry[*models.Sale], error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return saleTable.query(ctx, q, where)
}

func (c *Cache) auditEntries(ctx context.Context, where string) ([]Entry[*models.Audit], error) {
	q, err := c.conn()
	if err != nil {
		return nil, err
	}
	return auditTable.query(ctx, q, where)
}
