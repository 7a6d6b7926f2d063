package memory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

func newTestStore() *Store {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewStore(logger)
}

func seedProduct(t *testing.T, s *Store, quantity float64) *models.Product {
	t.Helper()
	p := models.NewProduct("Blue Dream", "BD-001", models.ProductTypeFlower, quantity, 10)
	p.HarvestDate = "2024-01-01"
	p.ExpiryDate = "2025-01-01"
	created, replayed, err := s.Products().Create(context.Background(), p, "")
	require.NoError(t, err)
	require.False(t, replayed)
	return created
}

func newSale(productID string, quantity float64, saleDate string) *models.Sale {
	sale := models.NewSale(productID, quantity, 10, saleDate)
	sale.TotalAmount = quantity * 10
	return sale
}

func productQuantity(t *testing.T, s *Store, id string) float64 {
	t.Helper()
	p, err := s.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func TestSaleCreateAndEditAdjustStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 100)

	sale, _, err := s.Sales().Create(ctx, newSale(product.ID, 30, "2024-03-01"), "")
	require.NoError(t, err)
	assert.Equal(t, 70.0, productQuantity(t, s, product.ID))
	assert.Equal(t, "BD-001", sale.BatchNumber, "batch number copied from product")

	_, err = s.Sales().Update(ctx, sale.ID, func(sl *models.Sale) error {
		sl.Quantity = 10
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 90.0, productQuantity(t, s, product.ID))

	// No-op edit, twice
	for i := 0; i < 2; i++ {
		_, err = s.Sales().Update(ctx, sale.ID, func(sl *models.Sale) error {
			sl.Quantity = 10
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 90.0, productQuantity(t, s, product.ID))
}

func TestManySalesSumToDecrement(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 50)

	quantities := []float64{1.5, 2, 0.5, 7, 3.25}
	for _, q := range quantities {
		_, _, err := s.Sales().Create(ctx, newSale(product.ID, q, "2024-03-01"), "")
		require.NoError(t, err)
	}
	assert.Equal(t, 35.75, productQuantity(t, s, product.ID))
}

func TestConcurrentSalesApplyExactlyOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 1000)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.Sales().Create(ctx, newSale(product.ID, 2, "2024-03-01"), "")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 900.0, productQuantity(t, s, product.ID))
}

func TestOrphanSaleIsStored(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 20)

	sale, _, err := s.Sales().Create(ctx, newSale("missing-product", 5, "2024-03-01"), "")
	require.NoError(t, err)

	stored, err := s.Sales().GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, "missing-product", stored.ProductID)
	assert.Empty(t, stored.BatchNumber)
	assert.Equal(t, 20.0, productQuantity(t, s, product.ID))
}

func TestSaleIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 100)

	first, replayed, err := s.Sales().Create(ctx, newSale(product.ID, 30, "2024-03-01"), "local-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := s.Sales().Create(ctx, newSale(product.ID, 30, "2024-03-01"), "local-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 70.0, productQuantity(t, s, product.ID))
	sales, err := s.Sales().List(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestSaleMovedToAnotherProduct(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	a := seedProduct(t, s, 100)
	b := seedProduct(t, s, 40)

	sale, _, err := s.Sales().Create(ctx, newSale(a.ID, 10, "2024-03-01"), "")
	require.NoError(t, err)

	_, err = s.Sales().Update(ctx, sale.ID, func(sl *models.Sale) error {
		sl.ProductID = b.ID
		sl.Quantity = 4
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, 100.0, productQuantity(t, s, a.ID))
	assert.Equal(t, 36.0, productQuantity(t, s, b.ID))
}

func TestRejectedSaleEditLeavesStock(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 100)

	sale, _, err := s.Sales().Create(ctx, newSale(product.ID, 30, "2024-03-01"), "")
	require.NoError(t, err)

	_, err = s.Sales().Update(ctx, sale.ID, func(sl *models.Sale) error {
		sl.Quantity = 0
		return nil
	})
	require.Error(t, err)
	assert.True(t, repositories.IsValidation(err))

	stored, err := s.Sales().GetByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, stored.Quantity)
	assert.Equal(t, 70.0, productQuantity(t, s, product.ID))

	boom := errors.New("boom")
	_, err = s.Sales().Update(ctx, sale.ID, func(*models.Sale) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestUpdateMissingSaleIsNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.Sales().Update(context.Background(), "nope", func(*models.Sale) error { return nil })
	assert.True(t, repositories.IsNotFound(err))
}

func TestEmptyIDIsRejected(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Products().GetByID(ctx, " ")
	assert.True(t, repositories.IsInvalidID(err))
	assert.True(t, repositories.IsValidation(err))
	assert.False(t, repositories.IsNotFound(err))

	_, err = s.Products().Update(ctx, "", func(p *models.Product) error { return nil })
	assert.True(t, repositories.IsInvalidID(err))

	existed, err := s.Products().Delete(ctx, "")
	assert.False(t, existed)
	assert.True(t, repositories.IsInvalidID(err))

	_, err = s.Sales().GetByID(ctx, "")
	assert.True(t, repositories.IsInvalidID(err))

	_, err = s.Audits().Update(ctx, "", func(a *models.Audit) error { return nil })
	require.Error(t, err)
	assert.Equal(t, "audit ID is required", err.Error())
}

func TestSalesByDateRangeIsInclusiveAndLexical(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 100)

	for _, date := range []string{"2024-02-28", "2024-03-01", "2024-03-15", "2024-03-31", "2024-04-01"} {
		_, _, err := s.Sales().Create(ctx, newSale(product.ID, 1, date), "")
		require.NoError(t, err)
	}

	sales, err := s.Sales().GetByDateRange(ctx, "2024-03-01", "2024-03-31")
	require.NoError(t, err)

	var dates []string
	for _, sale := range sales {
		dates = append(dates, sale.SaleDate)
	}
	assert.Equal(t, []string{"2024-03-01", "2024-03-15", "2024-03-31"}, dates)
}

func TestProductDeleteTwice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 10)

	existed, err := s.Products().Delete(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, existed)

	list, err := s.Products().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	existed, err = s.Products().Delete(ctx, product.ID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestProductUpdateMergesAndBumpsTimestamp(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	product := seedProduct(t, s, 10)

	updated, err := s.Products().Update(ctx, product.ID, func(p *models.Product) error {
		p.StorageLocation = func() *string { v := "Vault A"; return &v }()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Vault A", updated.GetStorageLocation())
	assert.Equal(t, product.StrainName, updated.StrainName)
	assert.True(t, updated.UpdatedAt.After(product.UpdatedAt))
	assert.Equal(t, product.CreatedAt, updated.CreatedAt)
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	s := newTestStore()
	product := seedProduct(t, s, 10)

	product.Quantity = 999
	assert.Equal(t, 10.0, productQuantity(t, s, product.ID))
}

func TestListKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()
	for i := 0; i < 5; i++ {
		p := models.NewProduct(fmt.Sprintf("Strain %d", i), fmt.Sprintf("B-%d", i), models.ProductTypeEdible, 1, 1)
		_, _, err := s.Products().Create(ctx, p, "")
		require.NoError(t, err)
	}

	list, err := s.Products().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 5)
	for i, p := range list {
		assert.Equal(t, fmt.Sprintf("Strain %d", i), p.StrainName)
	}

	found, err := s.Products().Search(ctx, "strain 3", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "B-3", found[0].BatchNumber)
}

func TestSettingsUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	before, err := s.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, before.Theme)

	_, err = s.Settings().Update(ctx, func(st *models.AppSettings) error {
		st.Theme = models.ThemeDark
		return nil
	})
	require.NoError(t, err)

	after, err := s.Settings().Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, after.Theme)
	assert.Equal(t, models.SettingsID, after.ID)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	_, err = s.Settings().Update(ctx, func(st *models.AppSettings) error {
		st.Theme = "neon"
		return nil
	})
	assert.True(t, repositories.IsValidation(err))
}

func TestAuditsByStatus(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	a, _, err := s.Audits().Create(ctx, models.NewAudit(models.AuditTypeMonthly, "Sam", "2024-03-01"), "")
	require.NoError(t, err)
	_, _, err = s.Audits().Create(ctx, models.NewAudit(models.AuditTypeSpot, "Lee", "2024-03-02"), "")
	require.NoError(t, err)

	_, err = s.Audits().Update(ctx, a.ID, func(audit *models.Audit) error {
		audit.Status = models.AuditStatusCompleted
		return nil
	})
	require.NoError(t, err)

	pending, err := s.Audits().GetByStatus(ctx, models.AuditStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Lee", pending[0].AuditorName)
}

func TestClosedStore(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Health(context.Background()), repositories.ErrClosed)
	_, err := s.Products().List(context.Background())
	assert.ErrorIs(t, err, repositories.ErrClosed)
}
