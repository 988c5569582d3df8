package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/okorelov/profile-auth/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID propagates the caller's request identifier, minting one when the
// header is absent, and stores it on the request context so the logger and
// error responses can echo it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Writer.Header().Set(requestIDHeader, reqID)

		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID),
		)
		c.Next()
	}
}
