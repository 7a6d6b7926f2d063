package offline

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/adapters/remote"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/services"
)

// SyncFailure describes one queued change the server did not accept
type SyncFailure struct {
	Entity Entity `json:"entity"`
	ID     string `json:"id"`
	Action string `json:"action"`
	Error  string `json:"error"`
}

// SyncResult summarizes one reconciliation pass
type SyncResult struct {
	Created        int           `json:"created"`
	Updated        int           `json:"updated"`
	Deleted        int           `json:"deleted"`
	Skipped        int           `json:"skipped"`
	Failed         int           `json:"failed"`
	RemappedSales  int           `json:"remappedSales"`
	Failures       []SyncFailure `json:"failures"`
	StartedAt      time.Time     `json:"startedAt"`
	FinishedAt     time.Time     `json:"finishedAt"`
	RemainingQueue int           `json:"remainingQueue"`
}

// Reconciler sends queued cache changes to the server one record at a time
type Reconciler struct {
	api    API
	cache  *Cache
	logger *logrus.Logger
}

// NewReconciler creates a reconciler over api and cache
func NewReconciler(api API, cache *Cache, logger *logrus.Logger) *Reconciler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reconciler{api: api, cache: cache, logger: logger}
}

// Sync runs one best-effort pass. Products are created first so sales can be
// pointed at their server ids, then product deletes, then sales, then product
// edits, so a stock count set offline lands after the sales it already counts.
// Audits and settings follow. A failing record is counted and left queued;
// only cancellation of ctx ends the pass early.
func (r *Reconciler) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{Failures: []SyncFailure{}, StartedAt: time.Now().UTC()}

	steps := []func(context.Context, *SyncResult){
		r.createProducts,
		r.deleteProducts,
		r.createSales,
		r.updateSales,
		r.updateProducts,
		r.createAudits,
		r.updateAudits,
		r.updateSettings,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		step(ctx, result)
	}

	if pending, err := r.cache.Pending(ctx); err == nil {
		result.RemainingQueue = pending.Total()
	}
	result.FinishedAt = time.Now().UTC()

	r.logger.WithFields(logrus.Fields{
		"created":        result.Created,
		"updated":        result.Updated,
		"deleted":        result.Deleted,
		"skipped":        result.Skipped,
		"failed":         result.Failed,
		"remapped_sales": result.RemappedSales,
		"remaining":      result.RemainingQueue,
		"duration":       result.FinishedAt.Sub(result.StartedAt).String(),
	}).Info("Reconciliation pass finished")

	return result, ctx.Err()
}

func (r *Reconciler) createProducts(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.productEntries(ctx, unconfirmedRows)
	if err != nil {
		r.fail(result, EntityProducts, "", ActionCreate, err)
		return
	}

	for _, e := range entries {
		localID := e.Record.ID
		server, err := r.api.CreateProduct(ctx, services.ProductCreation(e.Record), keyOf(e.State, localID))
		if err != nil {
			r.fail(result, EntityProducts, localID, ActionCreate, err)
			continue
		}

		remapped, err := r.cache.replaceProduct(ctx, localID, server)
		if err != nil {
			r.storageFailure(result, EntityProducts, localID, err)
			continue
		}
		result.Created++
		result.RemappedSales += remapped

		r.logger.WithFields(logrus.Fields{
			"local_id":       localID,
			"server_id":      server.ID,
			"remapped_sales": remapped,
		}).Info("Queued product created on server")
	}
}

func (r *Reconciler) updateProducts(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.productEntries(ctx, dirtyRows)
	if err != nil {
		r.fail(result, EntityProducts, "", ActionUpdate, err)
		return
	}

	for _, e := range entries {
		id := e.Record.ID

		// The cached stock already counts its queued sales.
		waiting, err := r.cache.queuedSalesFor(ctx, id)
		if err != nil {
			r.fail(result, EntityProducts, id, ActionUpdate, err)
			continue
		}
		if waiting > 0 {
			result.Skipped++
			r.logger.WithFields(logrus.Fields{
				"product_id":   id,
				"queued_sales": waiting,
			}).Warn("Product edit waits for its queued sales to reach the server")
			continue
		}

		req := services.ProductReplacement(e.Record)
		if !e.State.QuantityEdited {
			req.Quantity = nil
		}
		server, err := r.api.UpdateProduct(ctx, id, req)
		if err != nil {
			if remote.IsNotFound(err) {
				r.discard(EntityProducts, id, func() error { _, derr := r.cache.DeleteProduct(ctx, id); return derr })
			}
			r.fail(result, EntityProducts, id, ActionUpdate, err)
			continue
		}
		if err := r.cache.SaveProduct(ctx, server, Confirmed); err != nil {
			r.storageFailure(result, EntityProducts, id, err)
			continue
		}
		result.Updated++
	}
}

func (r *Reconciler) deleteProducts(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.productEntries(ctx, tombstonedRows)
	if err != nil {
		r.fail(result, EntityProducts, "", ActionDelete, err)
		return
	}

	for _, e := range entries {
		id := e.Record.ID
		if err := r.api.DeleteProduct(ctx, id); err != nil && !remote.IsNotFound(err) {
			r.fail(result, EntityProducts, id, ActionDelete, err)
			continue
		}
		if _, err := r.cache.DeleteProduct(ctx, id); err != nil {
			r.storageFailure(result, EntityProducts, id, err)
			continue
		}
		result.Deleted++
	}
}

func (r *Reconciler) createSales(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.saleEntries(ctx, unconfirmedRows)
	if err != nil {
		r.fail(result, EntitySales, "", ActionCreate, err)
		return
	}

	for _, e := range entries {
		localID := e.Record.ID

		// A sale whose product is still queued would land on the server as an orphan.
		if product, perr := r.cache.ProductEntry(ctx, e.Record.ProductID); perr == nil && !product.State.Confirmed {
			result.Skipped++
			r.logger.WithFields(logrus.Fields{
				"sale_id":    localID,
				"product_id": e.Record.ProductID,
			}).Warn("Sale waits for its product to reach the server")
			continue
		}

		server, err := r.api.CreateSale(ctx, services.SaleCreation(e.Record), keyOf(e.State, localID))
		if err != nil {
			r.fail(result, EntitySales, localID, ActionCreate, err)
			continue
		}
		if err := r.cache.replaceSale(ctx, localID, server); err != nil {
			r.storageFailure(result, EntitySales, localID, err)
			continue
		}
		result.Created++
	}
}

func (r *Reconciler) updateSales(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.saleEntries(ctx, dirtyRows)
	if err != nil {
		r.fail(result, EntitySales, "", ActionUpdate, err)
		return
	}

	for _, e := range entries {
		id := e.Record.ID
		server, err := r.api.UpdateSale(ctx, id, services.SaleReplacement(e.Record))
		if err != nil {
			r.fail(result, EntitySales, id, ActionUpdate, err)
			continue
		}
		if err := r.cache.SaveSale(ctx, server, Confirmed); err != nil {
			r.storageFailure(result, EntitySales, id, err)
			continue
		}
		result.Updated++
	}
}

func (r *Reconciler) createAudits(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.auditEntries(ctx, unconfirmedRows)
	if err != nil {
		r.fail(result, EntityAudits, "", ActionCreate, err)
		return
	}

	for _, e := range entries {
		localID := e.Record.ID
		server, err := r.api.CreateAudit(ctx, services.AuditCreation(e.Record), keyOf(e.State, localID))
		if err != nil {
			r.fail(result, EntityAudits, localID, ActionCreate, err)
			continue
		}

		record, state := server, Confirmed
		if e.Record.Status != server.Status {
			// Creation always opens a pending audit; carry the offline status over.
			local := e.Record.Clone()
			local.ID = server.ID
			local.CreatedAt = server.CreatedAt
			updated, uerr := r.api.UpdateAudit(ctx, server.ID, services.AuditReplacement(local))
			if uerr != nil {
				r.logger.WithError(uerr).WithField("audit_id", server.ID).Warn("Audit created but status update stays queued")
				record, state = local, SyncState{Confirmed: true, Dirty: true}
			} else {
				record = updated
			}
		}

		if err := r.cache.replaceAudit(ctx, localID, record, state); err != nil {
			r.storageFailure(result, EntityAudits, localID, err)
			continue
		}
		result.Created++
	}
}

func (r *Reconciler) updateAudits(ctx context.Context, result *SyncResult) {
	entries, err := r.cache.auditEntries(ctx, dirtyRows)
	if err != nil {
		r.fail(result, EntityAudits, "", ActionUpdate, err)
		return
	}

	for _, e := range entries {
		id := e.Record.ID
		server, err := r.api.UpdateAudit(ctx, id, services.AuditReplacement(e.Record))
		if err != nil {
			r.fail(result, EntityAudits, id, ActionUpdate, err)
			continue
		}
		if err := r.cache.SaveAudit(ctx, server, Confirmed); err != nil {
			r.storageFailure(result, EntityAudits, id, err)
			continue
		}
		result.Updated++
	}
}

func (r *Reconciler) updateSettings(ctx context.Context, result *SyncResult) {
	entry, err := r.cache.SettingsEntry(ctx)
	if err != nil {
		r.fail(result, EntitySettings, models.SettingsID, ActionUpdate, err)
		return
	}
	if entry.State.Settled() {
		return
	}

	server, err := r.api.UpdateSettings(ctx, services.SettingsReplacement(entry.Record))
	if err != nil {
		r.fail(result, EntitySettings, models.SettingsID, ActionUpdate, err)
		return
	}
	if err := r.cache.SaveSettings(ctx, server, Confirmed); err != nil {
		r.storageFailure(result, EntitySettings, models.SettingsID, err)
		return
	}
	result.Updated++
}

func (r *Reconciler) fail(result *SyncResult, entity Entity, id, action string, err error) {
	result.Failed++
	result.Failures = append(result.Failures, SyncFailure{Entity: entity, ID: id, Action: action, Error: err.Error()})

	entry := r.logger.WithError(err).WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
		"action": action,
	})
	if remote.IsTransport(err) {
		entry.Warn("Server unreachable, change stays queued")
		return
	}
	entry.Error("Server rejected queued change")
}

// storageFailure records a row the server accepted but the cache could not rewrite.
// The next pass replays it under the same idempotency key.
func (r *Reconciler) storageFailure(result *SyncResult, entity Entity, id string, err error) {
	result.Failed++
	result.Failures = append(result.Failures, SyncFailure{Entity: entity, ID: id, Action: "store", Error: err.Error()})
	r.logger.WithError(err).WithFields(logrus.Fields{
		"entity": entity,
		"id":     id,
	}).Error("Failed to record server answer in offline cache")
}

func (r *Reconciler) discard(entity Entity, id string, drop func() error) {
	if err := drop(); err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"entity": entity,
			"id":     id,
		}).Warn("Failed to drop record the server no longer has")
	}
}

func keyOf(state SyncState, fallback string) string {
	if state.IdempotencyKey != "" {
		return state.IdempotencyKey
	}
	return fallback
}
