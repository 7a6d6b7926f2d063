package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/services"
)

const productEntity = "Product"

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	productService services.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(productService services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

// @Summary Create a new product
// @Description Create a product. Repeating a request with the same Idempotency-Key returns the original product.
// @Tags products
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated key for safe retries"
// @Param product body services.CreateProductRequest true "Product data"
// @Success 201 {object} models.Product
// @Success 200 {object} models.Product "Replayed request"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.CreateProductRequest
	if !bindJSON(c, &req, productEntity) {
		return
	}

	product, replayed, err := h.productService.CreateProduct(c.Request.Context(), &req, idempotencyKey(c))
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to create product")
		return
	}

	respondCreated(c, product, replayed)
}

// @Summary List products
// @Description List all products, optionally filtered by batch number
// @Tags products
// @Produce json
// @Param batch query string false "Batch number"
// @Success 200 {array} models.Product
// @Failure 500 {object} ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	if batch := c.Query("batch"); batch != "" {
		products, err := h.productService.GetProductsByBatch(ctx, batch)
		if err != nil {
			handleServiceError(c, err, productEntity, "Failed to fetch products")
			return
		}
		c.JSON(http.StatusOK, products)
		return
	}

	products, err := h.productService.ListProducts(ctx)
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, products)
}

// @Summary Get a product by ID
// @Tags products
// @Produce json
// @Param id path string true "Product ID"
// @Success 200 {object} models.Product
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.productService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to fetch product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary Update a product
// @Description Partially update a product; omitted fields keep their values
// @Tags products
// @Accept json
// @Produce json
// @Param id path string true "Product ID"
// @Param product body services.UpdateProductRequest true "Updated product data"
// @Success 200 {object} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req services.UpdateProductRequest
	if !bindJSON(c, &req, productEntity) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to update product")
		return
	}

	c.JSON(http.StatusOK, product)
}

// @Summary Delete a product
// @Tags products
// @Param id path string true "Product ID"
// @Success 204 "Product deleted successfully"
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	existed, err := h.productService.DeleteProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to delete product")
		return
	}
	if !existed {
		respondNotFound(c, productEntity)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary Search products
// @Description Case-insensitive search over strain name, batch number, type and supplier
// @Tags products
// @Produce json
// @Param q query string true "Search query"
// @Param limit query int false "Limit number of results" default(50)
// @Success 200 {array} models.Product
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /products/search [get]
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "Search query is required", "q", "is required")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	products, err := h.productService.SearchProducts(c.Request.Context(), query, limit)
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to search products")
		return
	}

	c.JSON(http.StatusOK, products)
}

// @Summary List low stock products
// @Tags products
// @Produce json
// @Param threshold query number false "Low stock threshold" default(10)
// @Success 200 {array} models.Product
// @Failure 500 {object} ErrorResponse
// @Router /products/low-stock [get]
func (h *ProductHandler) GetLowStockProducts(c *gin.Context) {
	threshold, _ := strconv.ParseFloat(c.Query("threshold"), 64)

	products, err := h.productService.GetLowStockProducts(c.Request.Context(), threshold)
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, products)
}

// @Summary List expired products
// @Tags products
// @Produce json
// @Success 200 {array} models.Product
// @Failure 500 {object} ErrorResponse
// @Router /products/expired [get]
func (h *ProductHandler) GetExpiredProducts(c *gin.Context) {
	products, err := h.productService.GetExpiredProducts(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, productEntity, "Failed to fetch products")
		return
	}

	c.JSON(http.StatusOK, products)
}
