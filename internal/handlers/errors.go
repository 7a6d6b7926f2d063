package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"cannabistrack-api/internal/middleware"
	"cannabistrack-api/internal/repositories"
	"cannabistrack-api/internal/services"
)

// ErrorResponse represents a standard error response
type ErrorResponse = middleware.ErrorResponse

// Error codes carried in ErrorResponse.Error
const (
	codeNotFound   = "not_found"
	codeValidation = "validation_error"
	codeBadRequest = "invalid_request"
	codeInternal   = "internal_error"
)

// handleServiceError maps a service error onto an HTTP response.
// entity names the resource ("Product") and failure is the message used for unexpected errors.
func handleServiceError(c *gin.Context, err error, entity, failure string) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   codeValidation,
			Message: ve.Message,
			Details: ve.Fields,
		})
	case repositories.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   codeValidation,
			Message: invalidMessage(entity),
			Details: map[string]string{"error": err.Error()},
		})
	case repositories.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   codeNotFound,
			Message: notFoundMessage(entity),
		})
	default:
		middleware.RequestLogger(c).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"error":  err.Error(),
		}).Error(failure)

		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   codeInternal,
			Message: failure,
		})
	}
}

// respondNotFound writes the 404 body for entity
func respondNotFound(c *gin.Context, entity string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Error:   codeNotFound,
		Message: notFoundMessage(entity),
	})
}

// respondBadRequest writes a 400 body with a single detail entry
func respondBadRequest(c *gin.Context, message, field, detail string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   codeBadRequest,
		Message: message,
		Details: map[string]string{field: detail},
	})
}

func notFoundMessage(entity string) string {
	return fmt.Sprintf("%s not found", entity)
}

func invalidMessage(entity string) string {
	return fmt.Sprintf("Invalid %s data", strings.ToLower(entity))
}
