package lambda

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cannabistrack-api/internal/config"
)

func testManager(t *testing.T) *ConnectionManager {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment: "test",
		Server:      config.ServerConfig{Port: "8080"},
		Log:         config.LogConfig{Level: "error", Format: "json"},
		HTTP: config.HTTPConfig{
			RateLimitRPS:   100,
			RateLimitBurst: 200,
			AllowedOrigins: []string{"*"},
			MaxRequestSize: 1 << 20,
		},
		Inventory: config.InventoryConfig{LowStockThreshold: 10},
	}

	cm := &ConnectionManager{}
	require.NoError(t, cm.Initialize(context.Background(), cfg))
	cm.container.Logger.SetOutput(io.Discard)
	cm.container.Logger.SetLevel(logrus.ErrorLevel)
	t.Cleanup(func() { _ = cm.Cleanup() })
	return cm
}

func TestHandleRoutesThroughRouter(t *testing.T) {
	cm := testManager(t)
	ctx := context.Background()

	resp, err := cm.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/products",
		Headers:    map[string]string{"Content-Type": "application/json", "Idempotency-Key": "k-1"},
		Body: `{"strainName":"Sour Diesel","batchNumber":"SD-1","productType":"flower","thcLevel":22,` +
			`"cbdLevel":0.5,"quantity":50,"unitPrice":9,"harvestDate":"2024-01-01","expiryDate":"2025-01-01"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, resp.IsBase64Encoded)
	assert.Contains(t, resp.Body, "Sour Diesel")

	replay, err := cm.Handle(ctx, events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodPost,
		Path:       "/api/products",
		Headers:    map[string]string{"Content-Type": "application/json", "Idempotency-Key": "k-1"},
		Body: `{"strainName":"Sour Diesel","batchNumber":"SD-1","productType":"flower","thcLevel":22,` +
			`"cbdLevel":0.5,"quantity":50,"unitPrice":9,"harvestDate":"2024-01-01","expiryDate":"2025-01-01"}`,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, replay.StatusCode)
	assert.Equal(t, "true", replay.Headers["Idempotent-Replayed"])

	missing, err := cm.Handle(ctx, events.APIGatewayProxyRequest{HTTPMethod: http.MethodGet, Path: "/api/products/nope"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHandleBinaryExport(t *testing.T) {
	cm := testManager(t)

	resp, err := cm.Handle(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/api/reports/export/products",
		QueryStringParameters: map[string]string{"format": "xlsx"},
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsBase64Encoded)

	data, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestFromAPIGatewayDecodesBase64(t *testing.T) {
	req, err := FromAPIGateway(events.APIGatewayProxyRequest{
		HTTPMethod:      http.MethodPost,
		Path:            "/api/sales",
		Body:            base64.StdEncoding.EncodeToString([]byte(`{"a":1}`)),
		IsBase64Encoded: true,
		MultiValueHeaders: map[string][]string{
			"Accept": {"text/csv", "application/json"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(req.Body))
	assert.Equal(t, "text/csv,application/json", req.Headers["Accept"])

	_, err = FromAPIGateway(events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true})
	assert.Error(t, err)
}

func TestIsHealthy(t *testing.T) {
	cm := &ConnectionManager{}
	assert.False(t, cm.IsHealthy())

	cm = testManager(t)
	assert.True(t, cm.IsHealthy())

	cm.lastUsed = time.Now().Add(-10 * time.Minute)
	assert.False(t, cm.IsHealthy())
}
