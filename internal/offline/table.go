package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// SyncState carries the reconciliation flags of a cached row
type SyncState struct {
	Confirmed      bool   `json:"confirmed"`
	Dirty          bool   `json:"dirty"`
	Deleted        bool   `json:"deleted"`
	QuantityEdited bool   `json:"quantityEdited"`
	IdempotencyKey string `json:"idempotencyKey,omitempty"`
}

// Settled reports whether the row matches the server and has nothing to send
func (s SyncState) Settled() bool {
	return s.Confirmed && !s.Dirty && !s.Deleted
}

// Confirmed is the state of a row mirrored from the server
var Confirmed = SyncState{Confirmed: true}

// Entry is a cached record with its sync flags
type Entry[T any] struct {
	Record   T
	State    SyncState
	CachedAt time.Time
}

// queryer is satisfied by *sql.DB and *sql.Tx
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// table maps one record type onto its cache table
type table[T any] struct {
	name    string
	entity  string
	columns []string
	id      func(T) string
	values  func(T) []interface{}
}

var (
	productTable = table[*models.Product]{
		name:    "products",
		entity:  "product",
		columns: []string{"strain_name", "batch_number"},
		id:      func(p *models.Product) string { return p.ID },
		values:  func(p *models.Product) []interface{} { return []interface{}{p.StrainName, p.BatchNumber} },
	}
	saleTable = table[*models.Sale]{
		name:    "sales",
		entity:  "sale",
		columns: []string{"product_id", "sale_date"},
		id:      func(s *models.Sale) string { return s.ID },
		values:  func(s *models.Sale) []interface{} { return []interface{}{s.ProductID, s.SaleDate} },
	}
	auditTable = table[*models.Audit]{
		name:    "audits",
		entity:  "audit",
		columns: []string{"audit_type", "status"},
		id:      func(a *models.Audit) string { return a.ID },
		values:  func(a *models.Audit) []interface{} { return []interface{}{string(a.AuditType), string(a.Status)} },
	}
	settingsTable = table[*models.AppSettings]{
		name:   "settings",
		entity: "settings",
		id:     func(s *models.AppSettings) string { return s.ID },
		values: func(s *models.AppSettings) []interface{} { return nil },
	}
)

// save upserts rec with the given flags
func (t table[T]) save(ctx context.Context, q queryer, rec T, state SyncState, now time.Time) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", t.entity, err)
	}

	columns := append([]string{"id"}, t.columns...)
	columns = append(columns, "data", "confirmed", "dirty", "deleted", "quantity_edited", "idempotency_key", "cached_at")

	args := []interface{}{t.id(rec)}
	args = append(args, t.values(rec)...)
	args = append(args, string(data), state.Confirmed, state.Dirty, state.Deleted, state.QuantityEdited,
		nullString(state.IdempotencyKey), now.UTC().Format(time.RFC3339Nano))

	updates := make([]string, 0, len(columns)-1)
	for _, col := range columns[1:] {
		updates = append(updates, fmt.Sprintf("%s = excluded.%s", col, col))
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		t.name,
		strings.Join(columns, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
		strings.Join(updates, ", "),
	)

	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save %s %s: %w", t.entity, t.id(rec), err)
	}
	return nil
}

// remove deletes the row and reports whether it existed
func (t table[T]) remove(ctx context.Context, q queryer, id string) (bool, error) {
	result, err := q.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", t.entity, id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s %s: %w", t.entity, id, err)
	}
	return n > 0, nil
}

// query returns the rows matching where, oldest cached first
func (t table[T]) query(ctx context.Context, q queryer, where string, args ...interface{}) ([]Entry[T], error) {
	query := fmt.Sprintf("SELECT data, confirmed, dirty, deleted, quantity_edited, idempotency_key, cached_at FROM %s", t.name)
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY rowid"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.name, err)
	}
	defer rows.Close()

	entries := []Entry[T]{}
	for rows.Next() {
		entry, err := t.scan(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", t.name, err)
	}
	return entries, nil
}

// get returns one row by id including tombstones
func (t table[T]) get(ctx context.Context, q queryer, id string) (Entry[T], error) {
	entries, err := t.query(ctx, q, "id = ?", id)
	if err != nil {
		return Entry[T]{}, err
	}
	if len(entries) == 0 {
		return Entry[T]{}, notFound(t, id)
	}
	return entries[0], nil
}

// records returns the live records matching where
func (t table[T]) records(ctx context.Context, q queryer, where string, args ...interface{}) ([]T, error) {
	clause := "deleted = 0"
	if where != "" {
		clause += " AND " + where
	}
	entries, err := t.query(ctx, q, clause, args...)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Record)
	}
	return out, nil
}

// count returns the number of rows matching where
func (t table[T]) count(ctx context.Context, q queryer, where string) (int, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", t.name, where)
	if err := q.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.name, err)
	}
	return n, nil
}

// merge stores server records as confirmed. Rows with unsent local changes are kept,
// and settled rows the server no longer returns are dropped.
func (t table[T]) merge(ctx context.Context, q queryer, records []T, now time.Time) (int, error) {
	seen := make(map[string]bool, len(records))
	stored := 0
	for _, rec := range records {
		id := t.id(rec)
		seen[id] = true

		existing, err := t.get(ctx, q, id)
		switch {
		case err == nil && !existing.State.Settled():
			continue
		case err != nil && !isNotFound(err):
			return stored, err
		}

		if err := t.save(ctx, q, rec, Confirmed, now); err != nil {
			return stored, err
		}
		stored++
	}

	settled, err := t.query(ctx, q, "confirmed = 1 AND dirty = 0 AND deleted = 0")
	if err != nil {
		return stored, err
	}
	for _, e := range settled {
		if id := t.id(e.Record); !seen[id] {
			if _, err := t.remove(ctx, q, id); err != nil {
				return stored, err
			}
		}
	}
	return stored, nil
}

func (t table[T]) scan(rows *sql.Rows) (Entry[T], error) {
	var (
		entry    Entry[T]
		data     string
		key      sql.NullString
		cachedAt string
	)
	if err := rows.Scan(&data, &entry.State.Confirmed, &entry.State.Dirty, &entry.State.Deleted, &entry.State.QuantityEdited, &key, &cachedAt); err != nil {
		return entry, fmt.Errorf("failed to scan %s row: %w", t.entity, err)
	}
	if err := json.Unmarshal([]byte(data), &entry.Record); err != nil {
		return entry, fmt.Errorf("failed to decode cached %s: %w", t.entity, err)
	}
	entry.State.IdempotencyKey = key.String
	if ts, err := time.Parse(time.RFC3339Nano, cachedAt); err == nil {
		entry.CachedAt = ts
	}
	return entry, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}


func notFound[T any](t table[T], id string) error {
	return repositories.NotFoundError(t.entity, id)
}

func isNotFound(err error) bool {
	return err != nil && repositories.IsNotFound(err)
}
