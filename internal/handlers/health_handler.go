package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/models"
	"cannabistrack-api/internal/repositories"
)

// HealthHandler reports liveness of the API and its store
type HealthHandler struct {
	repos     repositories.RepositoryManager
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(repos repositories.RepositoryManager, version string) *HealthHandler {
	return &HealthHandler{
		repos:     repos,
		version:   version,
		startedAt: time.Now(),
	}
}

// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} models.HealthCheck
// @Failure 503 {object} models.HealthCheck
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	health := models.HealthCheck{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Services:  map[string]string{"store": "healthy"},
		Uptime:    time.Since(h.startedAt).Round(time.Second).String(),
	}

	status := http.StatusOK
	if err := h.repos.Health(c.Request.Context()); err != nil {
		health.Status = "unhealthy"
		health.Services["store"] = err.Error()
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, health)
}
