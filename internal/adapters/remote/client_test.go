package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/services"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}
}

func newTestClient(t *testing.T, handler http.Handler, timeout time.Duration) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	client, err := NewClient(Config{BaseURL: server.URL + "/", Timeout: timeout, Retry: fastRetry(), Logger: logger})
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "not a url"})
	assert.Error(t, err)
}

func TestCreateSaleSendsIdempotencyKey(t *testing.T) {
	var gotKey, gotContentType string
	var gotBody services.CreateSaleRequest

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sales", r.URL.Path)
		gotKey = r.Header.Get(IdempotencyKeyHeader)
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Sale{ID: "server-sale", ProductID: gotBody.ProductID, Quantity: gotBody.Quantity})
	}), 0)

	sale, err := client.CreateSale(context.Background(), &services.CreateSaleRequest{
		ProductID: "p1", Quantity: 3, UnitPrice: 10, SaleDate: "2024-03-01",
	}, "local-sale-1")
	require.NoError(t, err)

	assert.Equal(t, "local-sale-1", gotKey)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "p1", gotBody.ProductID)
	assert.Equal(t, "server-sale", sale.ID)
	assert.Equal(t, 3.0, sale.Quantity)
}

func TestServerErrorsAreRetriedThenSucceed(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode([]*models.Product{{ID: "p1", StrainName: "Blue Dream"}})
	}), 0)

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Blue Dream", products[0].StrainName)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestServerErrorExhaustsRetries(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}), 0)

	_, err := client.ListSales(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, errors.Is(err, ErrServerUnavailable))

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClientErrorsAreTerminal(t *testing.T) {
	var calls int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(models.APIError{
			Error:   "validation_error",
			Message: "Invalid product data",
			Details: map[string]string{"strainName": "is required"},
		})
	}), 0)

	_, err := client.CreateProduct(context.Background(), &services.CreateProductRequest{}, "k1")
	require.Error(t, err)
	assert.False(t, IsTransport(err))
	assert.True(t, IsValidation(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Invalid product data", apiErr.Message)
	assert.Equal(t, "is required", apiErr.Details["strainName"])
}

func TestNotFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(models.APIError{Error: "not_found", Message: "Product not found"})
	}), 0)

	err := client.DeleteProduct(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestTimeoutIsTransportFailure(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}), 20*time.Millisecond)
	defer close(release)

	_, err := client.GetSettings(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestUnreachableServerIsNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := NewClient(Config{BaseURL: url, Retry: fastRetry()})
	require.NoError(t, err)

	_, err = client.ListAudits(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	assert.True(t, IsRetryable(err))
}

func TestCallerCancellationIsNotTransportFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := client.ListProducts(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, IsTransport(err))
}

func TestExportReadsFilename(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports/export/products", r.URL.Path)
		assert.Equal(t, "csv", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="products_2024-03-10.csv"`)
		io.WriteString(w, "ID,Strain\np1,Blue Dream\n")
	}), 0)

	download, err := client.Export(context.Background(), "products", "csv")
	require.NoError(t, err)
	assert.Equal(t, "products_2024-03-10.csv", download.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", download.ContentType)
	assert.Contains(t, string(download.Data), "Blue Dream")
}

func TestWithRetryStopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := WithRetry(context.Background(), fastRetry(), func(ctx context.Context) error {
		calls++
		return &APIError{StatusCode: http.StatusConflict}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCalculateDelayIsCapped(t *testing.T) {
	cfg := &RetryConfig{InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, BackoffFactor: 2}
	assert.Equal(t, 100*time.Millisecond, cfg.calculateDelay(1))
	assert.Equal(t, 200*time.Millisecond, cfg.calculateDelay(2))
	assert.Equal(t, 300*time.Millisecond, cfg.calculateDelay(3))
}
