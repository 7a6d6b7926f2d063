package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/export"
	"cannabistrack-api/internal/services"
)

const reportEntity = "Report"

// ReportHandler serves dashboard figures and exports
type ReportHandler struct {
	reportService services.ReportService
}

// NewReportHandler creates a new report handler
func NewReportHandler(reportService services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// @Summary Dashboard summary
// @Tags reports
// @Produce json
// @Success 200 {object} models.DashboardSummary
// @Failure 500 {object} ErrorResponse
// @Router /reports/summary [get]
func (h *ReportHandler) GetSummary(c *gin.Context) {
	summary, err := h.reportService.GetSummary(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, reportEntity, "Failed to build summary")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// @Summary Daily sales totals
// @Tags reports
// @Produce json
// @Param days query int false "Number of days" default(7)
// @Success 200 {array} models.DailySales
// @Failure 500 {object} ErrorResponse
// @Router /reports/sales/daily [get]
func (h *ReportHandler) GetDailySales(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))

	daily, err := h.reportService.GetDailySales(c.Request.Context(), days)
	if err != nil {
		handleServiceError(c, err, reportEntity, "Failed to build daily sales")
		return
	}

	c.JSON(http.StatusOK, daily)
}

// @Summary Export records
// @Description Download products, sales or audits as CSV, XLSX or printable HTML
// @Tags reports
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Produce text/html
// @Param entity path string true "Entity" Enums(products, sales, audits)
// @Param format query string false "File format" Enums(csv, xlsx, html) default(csv)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /reports/export/{entity} [get]
func (h *ReportHandler) Export(c *gin.Context) {
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		respondBadRequest(c, "Invalid export format", "format", "must be one of: csv, xlsx, html")
		return
	}

	result, err := h.reportService.Export(c.Request.Context(), c.Param("entity"), format)
	if err != nil {
		handleServiceError(c, err, reportEntity, "Failed to export data")
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
