package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// TraceIDHeader carries the trace identifier in and out of the service.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the gin context key holding the trace identifier.
	TraceIDKey = "trace_id"
	// AccountIDKey is the gin context key for the authenticated account.
	AccountIDKey = "account_id"

	requestContextKey = "request_context"
)

// RequestContext is the request-scoped bundle handlers read when they need
// caller metadata without re-deriving it from the raw request.
type RequestContext struct {
	TraceID   string
	AccountID string
	IP        string
	UserAgent string
}

// EnrichContext assigns a trace identifier and stores a RequestContext on
// every request. An inbound trace header is honored, otherwise a new one is
// minted.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)
		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID returns the trace identifier for the request, or "" before
// EnrichContext has run.
func GetTraceID(c *gin.Context) string {
	id, _ := c.Value(TraceIDKey).(string)
	return id
}

// GetRequestContext never returns nil; a zero value stands in when
// EnrichContext was skipped.
func GetRequestContext(c *gin.Context) *RequestContext {
	if reqCtx, ok := c.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}
	return &RequestContext{}
}
