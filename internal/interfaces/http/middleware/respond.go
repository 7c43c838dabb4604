package middleware

import (
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Gin context keys
const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestIDFrom returns the id assigned by RequestID, if any
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(code, message, RequestIDFrom(c)))
}
