package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/services"
)

const auditEntity = "Audit"

// AuditHandler handles compliance audit requests
type AuditHandler struct {
	auditService services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService services.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// @Summary Open an audit
// @Description Create an audit. Status always starts as pending and discrepancy differences are computed server-side.
// @Tags audits
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Client generated key for safe retries"
// @Param audit body services.CreateAuditRequest true "Audit data"
// @Success 201 {object} models.Audit
// @Success 200 {object} models.Audit "Replayed request"
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /audits [post]
func (h *AuditHandler) CreateAudit(c *gin.Context) {
	var req services.CreateAuditRequest
	if !bindJSON(c, &req, auditEntity) {
		return
	}

	audit, replayed, err := h.auditService.CreateAudit(c.Request.Context(), &req, idempotencyKey(c))
	if err != nil {
		handleServiceError(c, err, auditEntity, "Failed to create audit")
		return
	}

	respondCreated(c, audit, replayed)
}

// @Summary List audits
// @Tags audits
// @Produce json
// @Param status query string false "Filter by status" Enums(pending, in-progress, completed, failed)
// @Success 200 {array} models.Audit
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /audits [get]
func (h *AuditHandler) ListAudits(c *gin.Context) {
	ctx := c.Request.Context()

	if status := c.Query("status"); status != "" {
		audits, err := h.auditService.GetAuditsByStatus(ctx, models.AuditStatus(status))
		if err != nil {
			handleServiceError(c, err, auditEntity, "Failed to fetch audits")
			return
		}
		c.JSON(http.StatusOK, audits)
		return
	}

	audits, err := h.auditService.ListAudits(ctx)
	if err != nil {
		handleServiceError(c, err, auditEntity, "Failed to fetch audits")
		return
	}

	c.JSON(http.StatusOK, audits)
}

// @Summary Get an audit by ID
// @Tags audits
// @Produce json
// @Param id path string true "Audit ID"
// @Success 200 {object} models.Audit
// @Failure 404 {object} ErrorResponse
// @Router /audits/{id} [get]
func (h *AuditHandler) GetAudit(c *gin.Context) {
	audit, err := h.auditService.GetAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err, auditEntity, "Failed to fetch audit")
		return
	}

	c.JSON(http.StatusOK, audit)
}

// @Summary Update an audit
// @Tags audits
// @Accept json
// @Produce json
// @Param id path string true "Audit ID"
// @Param audit body services.UpdateAuditRequest true "Audit changes"
// @Success 200 {object} models.Audit
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /audits/{id} [put]
func (h *AuditHandler) UpdateAudit(c *gin.Context) {
	var req services.UpdateAuditRequest
	if !bindJSON(c, &req, auditEntity) {
		return
	}

	audit, err := h.auditService.UpdateAudit(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		handleServiceError(c, err, auditEntity, "Failed to update audit")
		return
	}

	c.JSON(http.StatusOK, audit)
}
