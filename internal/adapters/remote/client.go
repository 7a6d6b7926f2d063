// Package remote is the HTTP client the offline tier uses to reach the authoritative API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/services"
)

// Header names shared with the API
const (
	IdempotencyKeyHeader     = "Idempotency-Key"
	IdempotentReplayedHeader = "Idempotent-Replayed"
)

// DefaultTimeout bounds every request attempt
const DefaultTimeout = 10 * time.Second

// Config configures a Client
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Retry      *RetryConfig
	HTTPClient *http.Client
	Logger     *logrus.Logger
}

// Client talks to the CannabisTrack REST API
type Client struct {
	baseURL    string
	timeout    time.Duration
	retry      *RetryConfig
	httpClient *http.Client
	logger     *logrus.Logger
}

// Download is an exported file fetched from the API
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewClient creates a new API client
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry == nil {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Client{
		baseURL:    base,
		timeout:    cfg.Timeout,
		retry:      cfg.Retry,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks the API liveness endpoint
func (c *Client) Health(ctx context.Context) error {
	var health models.HealthCheck
	return c.call(ctx, "health", http.MethodGet, "/health", nil, "", &health)
}

// ListProducts fetches every product
func (c *Client) ListProducts(ctx context.Context) ([]*models.Product, error) {
	var products []*models.Product
	if err := c.call(ctx, "list products", http.MethodGet, "/api/products", nil, "", &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches one product
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := c.call(ctx, "get product", http.MethodGet, "/api/products/"+url.PathEscape(id), nil, "", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a product; key makes retries safe
func (c *Client) CreateProduct(ctx context.Context, req *services.CreateProductRequest, key string) (*models.Product, error) {
	var product models.Product
	if err := c.call(ctx, "create product", http.MethodPost, "/api/products", req, key, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct applies a product update
func (c *Client) UpdateProduct(ctx context.Context, id string, req *services.UpdateProductRequest) (*models.Product, error) {
	var product models.Product
	if err := c.call(ctx, "update product", http.MethodPut, "/api/products/"+url.PathEscape(id), req, "", &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct removes a product
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.call(ctx, "delete product", http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, "", nil)
}

// ListSales fetches every sale
func (c *Client) ListSales(ctx context.Context) ([]*models.Sale, error) {
	var sales []*models.Sale
	if err := c.call(ctx, "list sales", http.MethodGet, "/api/sales", nil, "", &sales); err != nil {
		return nil, err
	}
	return sales, nil
}

// CreateSale records a sale; key makes retries safe
func (c *Client) CreateSale(ctx context.Context, req *services.CreateSaleRequest, key string) (*models.Sale, error) {
	var sale models.Sale
	if err := c.call(ctx, "create sale", http.MethodPost, "/api/sales", req, key, &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// UpdateSale edits a sale
func (c *Client) UpdateSale(ctx context.Context, id string, req *services.UpdateSaleRequest) (*models.Sale, error) {
	var sale models.Sale
	if err := c.call(ctx, "update sale", http.MethodPatch, "/api/sales/"+url.PathEscape(id), req, "", &sale); err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListAudits fetches every audit
func (c *Client) ListAudits(ctx context.Context) ([]*models.Audit, error) {
	var audits []*models.Audit
	if err := c.call(ctx, "list audits", http.MethodGet, "/api/audits", nil, "", &audits); err != nil {
		return nil, err
	}
	return audits, nil
}

// CreateAudit opens an audit; key makes retries safe
func (c *Client) CreateAudit(ctx context.Context, req *services.CreateAuditRequest, key string) (*models.Audit, error) {
	var audit models.Audit
	if err := c.call(ctx, "create audit", http.MethodPost, "/api/audits", req, key, &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

// UpdateAudit updates an audit
func (c *Client) UpdateAudit(ctx context.Context, id string, req *services.UpdateAuditRequest) (*models.Audit, error) {
	var audit models.Audit
	if err := c.call(ctx, "update audit", http.MethodPut, "/api/audits/"+url.PathEscape(id), req, "", &audit); err != nil {
		return nil, err
	}
	return &audit, nil
}

// GetSettings fetches the settings singleton
func (c *Client) GetSettings(ctx context.Context) (*models.AppSettings, error) {
	var settings models.AppSettings
	if err := c.call(ctx, "get settings", http.MethodGet, "/api/settings", nil, "", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateSettings updates the settings singleton
func (c *Client) UpdateSettings(ctx context.Context, req *services.UpdateSettingsRequest) (*models.AppSettings, error) {
	var settings models.AppSettings
	if err := c.call(ctx, "update settings", http.MethodPut, "/api/settings", req, "", &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Export downloads an entity export in the given format
func (c *Client) Export(ctx context.Context, entity, format string) (*Download, error) {
	path := "/api/reports/export/" + url.PathEscape(entity)
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}

	var download *Download
	err := WithRetry(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.send(ctx, "export", http.MethodGet, path, nil, "")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &TransportError{Op: "export", Method: http.MethodGet, Path: path, Err: fmt.Errorf("%w: %v", ErrNetwork, err), Retryable: true}
		}

		download = &Download{
			Filename:    filenameFrom(resp.Header.Get("Content-Disposition"), entity),
			ContentType: resp.Header.Get("Content-Type"),
			Data:        data,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return download, nil
}

// call performs a JSON request with retries and decodes the answer into out
func (c *Client) call(ctx context.Context, op, method, path string, body interface{}, key string, out interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
		payload = data
	}

	return WithRetry(ctx, c.retry, func(ctx context.Context) error {
		resp, err := c.send(ctx, op, method, path, payload, key)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.Header.Get(IdempotentReplayedHeader) == "true" {
			c.logger.WithFields(logrus.Fields{
				"operation":       op,
				"idempotency_key": key,
			}).Info("Server replayed an already applied request")
		}

		if out == nil || resp.StatusCode == http.StatusNoContent {
			io.Copy(io.Discard, resp.Body)
			return nil
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return nil
	})
}

// send performs one bounded attempt and classifies failures.
// The returned response always has a 2xx status.
func (c *Client) send(ctx context.Context, op, method, path string, payload []byte, key string) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, c.baseURL+path, reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key != "" {
		req.Header.Set(IdempotencyKeyHeader, key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, c.transportError(op, method, path, err)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	switch {
	case resp.StatusCode >= 500:
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{
			Op:         op,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Err:        ErrServerUnavailable,
			Retryable:  true,
		}
	case resp.StatusCode >= 400:
		defer resp.Body.Close()
		return nil, decodeAPIError(method, path, resp)
	}

	return resp, nil
}

func (c *Client) transportError(op, method, path string, err error) *TransportError {
	cause := ErrNetwork
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		cause = ErrTimeout
	}

	c.logger.WithFields(logrus.Fields{
		"operation": op,
		"method":    method,
		"path":      path,
		"error":     err.Error(),
	}).Debug("Remote request failed")

	return &TransportError{
		Op:        op,
		Method:    method,
		Path:      path,
		Err:       fmt.Errorf("%w: %v", cause, err),
		Retryable: true,
	}
}

func decodeAPIError(method, path string, resp *http.Response) *APIError {
	apiErr := &APIError{Method: method, Path: path, StatusCode: resp.StatusCode}

	var body models.APIError
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
		apiErr.Details = body.Details
	}
	return apiErr
}

func filenameFrom(disposition, fallback string) string {
	if disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
			return params["filename"]
		}
	}
	return fallback
}

// cancelOnClose releases the attempt context once the body is consumed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
