package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/services"
)

const settingsEntity = "Settings"

// SettingsHandler serves the application settings singleton
type SettingsHandler struct {
	settingsService services.SettingsService
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// @Summary Get application settings
// @Tags settings
// @Produce json
// @Success 200 {object} models.AppSettings
// @Failure 500 {object} ErrorResponse
// @Router /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.settingsService.GetSettings(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, settingsEntity, "Failed to fetch settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}

// @Summary Update application settings
// @Tags settings
// @Accept json
// @Produce json
// @Param settings body services.UpdateSettingsRequest true "Settings changes"
// @Success 200 {object} models.AppSettings
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req services.UpdateSettingsRequest
	if !bindJSON(c, &req, settingsEntity) {
		return
	}

	settings, err := h.settingsService.UpdateSettings(c.Request.Context(), &req)
	if err != nil {
		handleServiceError(c, err, settingsEntity, "Failed to update settings")
		return
	}

	c.JSON(http.StatusOK, settings)
}
