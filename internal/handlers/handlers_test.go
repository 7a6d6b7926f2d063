package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannabistrack-api/internal/middleware"
	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories/memory"
	"cannabistrack-api/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.NewStore(logger)
	container, err := services.NewServiceContainer(store, &services.ServiceConfig{Logger: logger})
	require.NoError(t, err)

	router := gin.New()
	SetupMiddleware(router, &MiddlewareConfig{Logger: logger, RateLimitRPS: 10000, RateLimitBurst: 10000})
	SetupRoutes(router, &RouterConfig{
		Services:     container,
		Repositories: store,
		Version:      "test",
	})
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func productBody(quantity float64) map[string]interface{} {
	return map[string]interface{}{
		"strainName":  "Blue Dream",
		"batchNumber": "BD-001",
		"productType": "flower",
		"thcLevel":    21,
		"cbdLevel":    0.5,
		"quantity":    quantity,
		"unitPrice":   12.5,
		"harvestDate": "2024-01-01",
		"expiryDate":  "2099-01-01",
	}
}

func TestProductLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/products", productBody(100), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Product](t, w)
	assert.NotEmpty(t, created.ID)

	w = doJSON(t, router, http.MethodGet, "/api/products/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPut, "/api/products/"+created.ID, map[string]interface{}{"storageLocation": "Vault A"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[models.Product](t, w)
	assert.Equal(t, "Vault A", updated.GetStorageLocation())
	assert.Equal(t, 100.0, updated.Quantity)

	w = doJSON(t, router, http.MethodDelete, "/api/products/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/products/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/products/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	errBody := decode[ErrorResponse](t, w)
	assert.Equal(t, "Product not found", errBody.Message)
}

func TestCreateProductValidation(t *testing.T) {
	router := newTestRouter(t)

	body := productBody(10)
	delete(body, "strainName")
	w := doJSON(t, router, http.MethodPost, "/api/products", body, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	errBody := decode[ErrorResponse](t, w)
	assert.Equal(t, "Invalid product data", errBody.Message)
	assert.Contains(t, errBody.Details, "strainName")

	req := httptest.NewRequest(http.MethodPost, "/api/products", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaleAdjustsStockOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/products", productBody(100), nil)
	require.Equal(t, http.StatusCreated, w.Code)
	product := decode[models.Product](t, w)

	sale := map[string]interface{}{
		"productId": product.ID,
		"quantity":  30,
		"unitPrice": 12.5,
		"saleDate":  "2024-03-01",
	}
	key := map[string]string{middleware.IdempotencyKeyHeader: "sale-key-1"}

	w = doJSON(t, router, http.MethodPost, "/api/sales", sale, key)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Sale](t, w)

	w = doJSON(t, router, http.MethodPost, "/api/sales", sale, key)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(middleware.IdempotentReplayedHeader))
	assert.Equal(t, created.ID, decode[models.Sale](t, w).ID)

	w = doJSON(t, router, http.MethodGet, "/api/products/"+product.ID, nil, nil)
	assert.Equal(t, 70.0, decode[models.Product](t, w).Quantity)

	w = doJSON(t, router, http.MethodPatch, "/api/sales/"+created.ID, map[string]interface{}{"quantity": 10}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/products/"+product.ID, nil, nil)
	assert.Equal(t, 90.0, decode[models.Product](t, w).Quantity)

	w = doJSON(t, router, http.MethodGet, "/api/sales?productId="+product.ID, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Sale](t, w), 1)

	w = doJSON(t, router, http.MethodPatch, "/api/sales/missing", map[string]interface{}{"quantity": 1}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSalesByDateRange(t *testing.T) {
	router := newTestRouter(t)

	for _, date := range []string{"2024-01-05", "2024-01-10", "2024-02-01"} {
		w := doJSON(t, router, http.MethodPost, "/api/sales", map[string]interface{}{
			"productId": "p1", "quantity": 1, "unitPrice": 1, "saleDate": date,
		}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/api/sales/range?startDate=2024-01-05&endDate=2024-01-10", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Sale](t, w), 2)

	w = doJSON(t, router, http.MethodGet, "/api/sales/range?startDate=2024-01-05", nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Start date and end date are required", decode[ErrorResponse](t, w).Message)
}

func TestAuditEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/audits", map[string]interface{}{
		"auditType":   "spot",
		"auditorName": "Lee",
		"startDate":   "2024-03-01",
		"status":      "completed",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	audit := decode[models.Audit](t, w)
	assert.Equal(t, models.AuditStatusPending, audit.Status)

	w = doJSON(t, router, http.MethodPut, "/api/audits/"+audit.ID, map[string]interface{}{"status": "in-progress"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/audits?status=in-progress", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Audit](t, w), 1)

	w = doJSON(t, router, http.MethodGet, "/api/audits/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Audit not found", decode[ErrorResponse](t, w).Message)
}

func TestSettingsEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/settings", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	before := decode[models.AppSettings](t, w)
	assert.Equal(t, models.ThemeLight, before.Theme)

	w = doJSON(t, router, http.MethodPut, "/api/settings", map[string]interface{}{"theme": "dark"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/settings", nil, nil)
	after := decode[models.AppSettings](t, w)
	assert.Equal(t, models.ThemeDark, after.Theme)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	w = doJSON(t, router, http.MethodPut, "/api/settings", map[string]interface{}{"theme": "neon"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/products", productBody(4), nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/reports/summary", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[models.DashboardSummary](t, w)
	assert.Equal(t, 1, summary.TotalProducts)
	assert.Equal(t, 1, summary.LowStockCount)

	w = doJSON(t, router, http.MethodGet, "/api/reports/sales/daily?days=3", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.DailySales](t, w), 3)

	w = doJSON(t, router, http.MethodGet, "/api/products/low-stock?threshold=5", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.Product](t, w), 1)

	w = doJSON(t, router, http.MethodGet, "/api/reports/export/products?format=csv", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "products_")
	assert.Contains(t, w.Body.String(), "Blue Dream")

	w = doJSON(t, router, http.MethodGet, "/api/reports/export/products?format=doc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/reports/export/customers", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	w := doJSON(t, router, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[models.HealthCheck](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestUnexpectedErrorLoggedThroughRouterLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.ContextLogger(logger))
	router.GET("/boom", func(c *gin.Context) {
		handleServiceError(c, errors.New("disk full"), productEntity, "Failed to fetch product")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), `"msg":"Failed to fetch product"`)
	assert.Contains(t, buf.String(), `"error":"disk full"`)
	assert.Contains(t, buf.String(), w.Header().Get(middleware.RequestIDHeader))
}
