package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/services"
)

const saleEntity = "Sale"

// SaleHandler handles sale-related HTTP requests
type SaleHandler struct {
	saleService services.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(saleService services.SaleService) *SaleHandler {
	return &SaleHandler{saleService: saleService}
}

// @Summary Record a sale
// @Description Record a sale and decrement the product quantity. Repeating a request with the same Idempotency-Key returns the original sale without touching stock again.
// @Tags sales
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated key for safe retries"
// @Param sale body services.CreateSaleRequest true "Sale data"
// @Success 201 {object} models.Sale
// @Success 200 {object} models.Sale "Replayed request"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sales [post]
func (h *SaleHandler) CreateSale(c *gin.Context) {
	var req services.CreateSaleRequest
	if !bindJSON(c, &req, saleEntity) {
		return
	}

	sale, replayed, err := h.saleService.CreateSale(c.Request.Context(), &req, idempotencyKey(c))
	if err != nil {
		handleServiceError(c, err, saleEntity, "Failed to create sale")
		return
	}

	respondCreated(c, sale, replayed)
}

// @Summary List sales
// @Description List all sales, optionally filtered by product
// @Tags sales
// @Produce json
// @Param productId query string false "Product ID"
// @Success 200 {array} models.Sale
// @Failure 500 {object} ErrorResponse
// @Router /sales [get]
func (h *SaleHandler) ListSales(c *gin.Context) {
	ctx := c.Request.Context()

	if productID := c.Query("productId"); productID != "" {
		sales, err := h.saleService.GetSalesByProduct(ctx, productID)
		if err != nil {
			handleServiceError(c, err, saleEntity, "Failed to fetch sales")
			return
		}
		c.JSON(http.StatusOK, sales)
		return
	}

	sales, err := h.saleService.ListSales(ctx)
	if err != nil {
		handleServiceError(c, err, saleEntity, "Failed to fetch sales")
		return
	}

	c.JSON(http.StatusOK, sales)
}

// @Summary Get a sale by ID
// @Tags sales
// @Produce json
// @Param id path string true "Sale ID"
// @Success 200 {object} models.Sale
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sales/{id} [get]
func (h *SaleHandler) GetSale(c *gin.Context) {
	sale, err := h.saleService.GetSale(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, saleEntity, "Failed to fetch sale")
		return
	}

	c.JSON(http.StatusOK, sale)
}

// @Summary Edit a sale
// @Description Edit a sale; the product quantity is adjusted by the difference between the old and new sale quantity
// @Tags sales
// @Accept json
// @Produce json
// @Param id path string true "Sale ID"
// @Param sale body services.UpdateSaleRequest true "Sale changes"
// @Success 200 {object} models.Sale
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sales/{id} [patch]
func (h *SaleHandler) UpdateSale(c *gin.Context) {
	var req services.UpdateSaleRequest
	if !bindJSON(c, &req, saleEntity) {
		return
	}

	sale, err := h.saleService.UpdateSale(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err, saleEntity, "Failed to update sale")
		return
	}

	c.JSON(http.StatusOK, sale)
}

// @Summary List sales in a date range
// @Description Inclusive range over saleDate
// @Tags sales
// @Produce json
// @Param startDate query string true "Start date (YYYY-MM-DD)"
// @Param endDate query string true "End date (YYYY-MM-DD)"
// @Success 200 {array} models.Sale
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /sales/range [get]
func (h *SaleHandler) GetSalesByDateRange(c *gin.Context) {
	sales, err := h.saleService.GetSalesByDateRange(c.Request.Context(), c.Query("startDate"), c.Query("endDate"))
	if err != nil {
		handleServiceError(c, err, saleEntity, "Failed to fetch sales")
		return
	}

	c.JSON(http.StatusOK, sales)
}
