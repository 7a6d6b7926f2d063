package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannabistrack-api/internal/export"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
	"cannabistrack-api/internal/repositories/memory"
)

func newTestContainer(t *testing.T) (*ServiceContainer, *memory.Store) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore(logger)
	container, err := NewServiceContainer(store, &ServiceConfig{Logger: logger})
	require.NoError(t, err)
	require.NoError(t, container.Validate())
	return container, store
}

func ptr[T any](v T) *T { return &v }

func validProductRequest(quantity float64) *CreateProductRequest {
	return &CreateProductRequest{
		StrainName:  "Blue Dream",
		BatchNumber: "BD-001",
		ProductType: "flower",
		THCLevel:    21,
		CBDLevel:    0.5,
		Quantity:    quantity,
		UnitPrice:   12.5,
		HarvestDate: "2024-01-01",
		ExpiryDate:  "2099-01-01",
	}
}

func TestNewServiceContainerRequiresRepos(t *testing.T) {
	_, err := NewServiceContainer(nil, nil)
	assert.Error(t, err)
}

func TestCreateProductValidation(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(r *CreateProductRequest)
		field  string
	}{
		{"missing strain", func(r *CreateProductRequest) { r.StrainName = "" }, "strainName"},
		{"bad type", func(r *CreateProductRequest) { r.ProductType = "seeds" }, "productType"},
		{"thc over 100", func(r *CreateProductRequest) { r.THCLevel = 101 }, "thcLevel"},
		{"negative quantity", func(r *CreateProductRequest) { r.Quantity = -1 }, "quantity"},
		{"missing expiry", func(r *CreateProductRequest) { r.ExpiryDate = "" }, "expiryDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validProductRequest(10)
			tt.mutate(req)
			_, _, err := c.ProductService.CreateProduct(ctx, req, "")
			require.Error(t, err)
			assert.True(t, repositories.IsValidation(err))

			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, "Invalid product data", ve.Message)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestProductPartialUpdate(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	p, _, err := c.ProductService.CreateProduct(ctx, validProductRequest(10), "")
	require.NoError(t, err)

	updated, err := c.ProductService.UpdateProduct(ctx, p.ID, &UpdateProductRequest{
		Quantity: ptr(25.0),
		Supplier: ptr("  Green Farms "),
	})
	require.NoError(t, err)
	assert.Equal(t, 25.0, updated.Quantity)
	assert.Equal(t, "Green Farms", updated.GetSupplier())
	assert.Equal(t, "Blue Dream", updated.StrainName)

	_, err = c.ProductService.UpdateProduct(ctx, "missing", &UpdateProductRequest{Quantity: ptr(1.0)})
	assert.True(t, repositories.IsNotFound(err))

	_, err = c.ProductService.UpdateProduct(ctx, p.ID, &UpdateProductRequest{CBDLevel: ptr(-2.0)})
	assert.True(t, repositories.IsValidation(err))
}

func TestSaleLifecycleAdjustsStock(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	p, _, err := c.ProductService.CreateProduct(ctx, validProductRequest(100), "")
	require.NoError(t, err)

	sale, replayed, err := c.SaleService.CreateSale(ctx, &CreateSaleRequest{
		ProductID: p.ID,
		Quantity:  30,
		UnitPrice: 12.5,
		SaleDate:  "2024-03-01",
	}, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, 375.0, sale.TotalAmount)
	assert.Equal(t, "BD-001", sale.BatchNumber)

	got, err := c.ProductService.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 70.0, got.Quantity)

	edited, err := c.SaleService.UpdateSale(ctx, sale.ID, &UpdateSaleRequest{Quantity: ptr(10.0)})
	require.NoError(t, err)
	assert.Equal(t, 125.0, edited.TotalAmount)

	got, err = c.ProductService.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.Quantity)
}

func TestCreateSaleRecomputesClientTotal(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	sale, _, err := c.SaleService.CreateSale(ctx, &CreateSaleRequest{
		ProductID:   "orphan",
		Quantity:    2,
		UnitPrice:   10,
		TotalAmount: ptr(1.0),
		SaleDate:    "2024-03-01",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, 20.0, sale.TotalAmount)
}

func TestCreateSaleRejectsTinyQuantity(t *testing.T) {
	c, _ := newTestContainer(t)
	_, _, err := c.SaleService.CreateSale(context.Background(), &CreateSaleRequest{
		ProductID: "p",
		Quantity:  0.05,
		SaleDate:  "2024-03-01",
	}, "")
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve.Fields, "quantity")
}

func TestSalesByDateRangeRequiresBothBounds(t *testing.T) {
	c, _ := newTestContainer(t)
	_, err := c.SaleService.GetSalesByDateRange(context.Background(), "2024-01-01", "")
	require.Error(t, err)
	assert.True(t, repositories.IsValidation(err))
	assert.Equal(t, "Start date and end date are required", err.Error())
}

func TestCreateAuditForcesPendingAndComputesDifference(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	audit, _, err := c.AuditService.CreateAudit(ctx, &CreateAuditRequest{
		AuditType:   "monthly",
		AuditorName: "Sam Inspector",
		StartDate:   "2024-03-01T09:00:00Z",
		Discrepancies: []DiscrepancyInput{
			{ProductID: "p1", ExpectedQuantity: 10, ActualQuantity: 8},
		},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusPending, audit.Status)
	require.Len(t, audit.Discrepancies, 1)
	assert.Equal(t, -2.0, audit.Discrepancies[0].Difference)

	updated, err := c.AuditService.UpdateAudit(ctx, audit.ID, &UpdateAuditRequest{
		Status: ptr("completed"),
		Notes:  ptr("All counted"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.AuditStatusCompleted, updated.Status)
	assert.Len(t, updated.Discrepancies, 1, "discrepancies untouched when omitted")

	_, err = c.AuditService.UpdateAudit(ctx, audit.ID, &UpdateAuditRequest{Status: ptr("archived")})
	assert.True(t, repositories.IsValidation(err))

	_, err = c.AuditService.GetAuditsByStatus(ctx, "bogus")
	assert.True(t, repositories.IsValidation(err))
}

func TestSettingsUpdate(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	before, err := c.SettingsService.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ThemeLight, before.Theme)

	after, err := c.SettingsService.UpdateSettings(ctx, &UpdateSettingsRequest{Theme: ptr("dark")})
	require.NoError(t, err)
	assert.Equal(t, models.ThemeDark, after.Theme)
	assert.Equal(t, "CannabisTrack", after.AppName)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	_, err = c.SettingsService.UpdateSettings(ctx, &UpdateSettingsRequest{Language: ptr("fr")})
	assert.True(t, repositories.IsValidation(err))
}

func TestReportSummary(t *testing.T) {
	c, store := newTestContainer(t)
	ctx := context.Background()
	fixed := time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)
	rs := c.ReportService.(*reportService)
	rs.now = func() time.Time { return fixed }

	healthy, _, err := c.ProductService.CreateProduct(ctx, validProductRequest(50), "")
	require.NoError(t, err)

	low := validProductRequest(5)
	low.StrainName = "OG Kush"
	low.ExpiryDate = "2024-01-01"
	_, _, err = c.ProductService.CreateProduct(ctx, low, "")
	require.NoError(t, err)

	for _, date := range []string{"2024-03-10", "2024-03-10T08:30:00Z", "2024-03-09"} {
		_, _, err = c.SaleService.CreateSale(ctx, &CreateSaleRequest{
			ProductID: healthy.ID, Quantity: 1, UnitPrice: 10, SaleDate: date,
		}, "")
		require.NoError(t, err)
	}
	_, _, err = c.SaleService.CreateSale(ctx, &CreateSaleRequest{
		ProductID: "deleted-product", Quantity: 2, UnitPrice: 5, SaleDate: "2024-03-11",
	}, "")
	require.NoError(t, err)

	_, _, err = store.Audits().Create(ctx, models.NewAudit(models.AuditTypeSpot, "Lee", "2024-03-10"), "")
	require.NoError(t, err)

	summary, err := c.ReportService.GetSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalProducts)
	assert.Equal(t, 1, summary.LowStockCount)
	assert.Equal(t, 0, summary.OutOfStockCount)
	assert.Equal(t, 1, summary.ExpiredCount)
	assert.Equal(t, 1, summary.PendingAudits)
	assert.Equal(t, 2, summary.TodaySaleCount)
	assert.Equal(t, 20.0, summary.TodaySales)
	assert.Equal(t, 52.0, summary.InventoryWeight)
	require.Len(t, summary.RecentActivity, 4)
	assert.Equal(t, models.UnknownProductLabel, summary.RecentActivity[0].ProductName)
	assert.Equal(t, "Blue Dream", summary.RecentActivity[1].ProductName)

	daily, err := c.ReportService.GetDailySales(ctx, 3)
	require.NoError(t, err)
	require.Len(t, daily, 3)
	assert.Equal(t, "2024-03-08", daily[0].Date)
	assert.Equal(t, 1, daily[1].SaleCount)
	assert.Equal(t, 2, daily[2].SaleCount)
	assert.Equal(t, 20.0, daily[2].TotalAmount)
}

func TestReportExport(t *testing.T) {
	c, _ := newTestContainer(t)
	ctx := context.Background()

	_, _, err := c.ProductService.CreateProduct(ctx, validProductRequest(5), "")
	require.NoError(t, err)

	result, err := c.ReportService.Export(ctx, "products", export.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(result.Data), "Blue Dream")
	assert.Contains(t, result.Filename, "products_")
	assert.Equal(t, "text/csv; charset=utf-8", result.ContentType)

	_, err = c.ReportService.Export(ctx, "customers", export.FormatCSV)
	assert.True(t, repositories.IsValidation(err))
}

func TestReplacementRequestsRoundTrip(t *testing.T) {
	product := validProductRequest(40).NewProduct()
	product.Supplier = ptr("Green Farms")

	copyOf := product.Clone()
	copyOf.Supplier = nil
	copyOf.Quantity = 0
	ProductReplacement(product).ApplyTo(copyOf)
	assert.Equal(t, 40.0, copyOf.Quantity)
	assert.Equal(t, "Green Farms", copyOf.GetSupplier())

	cleared := &models.Product{Supplier: ptr("old")}
	ProductReplacement(&models.Product{}).ApplyTo(cleared)
	assert.Nil(t, cleared.Supplier, "an empty supplier clears the field")

	audit := models.NewAudit(models.AuditTypeSpot, "Lee", "2024-03-01")
	audit.Status = models.AuditStatusCompleted
	audit.Discrepancies = []models.Discrepancy{models.NewDiscrepancy("p1", 5, 4)}
	target := models.NewAudit(models.AuditTypeMonthly, "Sam", "2024-01-01")
	AuditReplacement(audit).ApplyTo(target)
	assert.Equal(t, models.AuditStatusCompleted, target.Status)
	assert.Equal(t, models.AuditTypeSpot, target.AuditType)
	require.Len(t, target.Discrepancies, 1)
	assert.Equal(t, -1.0, target.Discrepancies[0].Difference)

	sale := (&CreateSaleRequest{ProductID: "p1", Quantity: 3, UnitPrice: 2.5, SaleDate: "2024-03-01"}).NewSale()
	assert.Equal(t, 7.5, sale.TotalAmount)
	assert.Equal(t, "p1", SaleCreation(sale).ProductID)
}

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest("Invalid product data", validProductRequest(1)))

	err := ValidateRequest("Invalid sale data", &CreateSaleRequest{Quantity: 1, SaleDate: "2024-03-01"})
	require.Error(t, err)
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Invalid sale data", ve.Message)
	assert.Contains(t, ve.Fields, "productId")

	assert.True(t, repositories.IsValidation(ValidateRequest("Invalid settings data", nil)))
}
