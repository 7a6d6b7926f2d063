package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cannabistrack-api/internal/middleware"
)

// idempotencyKey returns the client supplied Idempotency-Key, if any
func idempotencyKey(c *gin.Context) string {
	return c.GetHeader(middleware.IdempotencyKeyHeader)
}

// respondCreated writes 201 for a new record and 200 with the replay header for a repeated key
func respondCreated(c *gin.Context, record interface{}, replayed bool) {
	if replayed {
		c.Header(middleware.IdempotentReplayedHeader, "true")
		c.JSON(http.StatusOK, record)
		return
	}
	c.JSON(http.StatusCreated, record)
}

// bindJSON decodes the request body into req, writing a 400 on malformed input
func bindJSON(c *gin.Context, req interface{}, entity string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondBadRequest(c, invalidMessage(entity), "body", err.Error())
		return false
	}
	return true
}
