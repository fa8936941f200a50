package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wms-platform/transfer-service/pkg/errors"
	"github.com/wms-platform/transfer-service/pkg/logging"
)

// Context keys
const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"
	ContextKeyTraceID       = "traceId"
	ContextKeyOperatorID    = "operatorId"
)

// HTTP header names
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
	HeaderOperatorID    = "X-Operator-ID"
)

// quietPaths are polled by orchestrators and scrapers and are not request-logged
var quietPaths = map[string]bool{"/health": true, "/ready": true, "/metrics": true}

// propagateID reads header, generating a uuid when absent, echoes it back and stores it
// under key on both the gin and request contexts.
func propagateID(c *gin.Context, header, key string, withID func(context.Context, string) context.Context) {
	id := c.GetHeader(header)
	if id == "" {
		id = uuid.New().String()
	}
	c.Set(key, id)
	c.Header(header, id)
	c.Request = c.Request.WithContext(withID(c.Request.Context(), id))
}

// RequestID middleware generates or propagates request IDs
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagateID(c, HeaderRequestID, ContextKeyRequestID, logging.ContextWithRequestID)
		c.Next()
	}
}

// CorrelationID propagates the correlation ID and the operator driving the request, so
// application logs and audit records carry them.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagateID(c, HeaderCorrelationID, ContextKeyCorrelationID, logging.ContextWithCorrelationID)

		if operatorID := c.GetHeader(HeaderOperatorID); operatorID != "" {
			c.Set(ContextKeyOperatorID, operatorID)
			c.Request = c.Request.WithContext(logging.ContextWithOperatorID(c.Request.Context(), operatorID))
		}

		c.Next()
	}
}

// Logger logs one line per request with the ids set by the middlewares above and, for
// item routes, the order line being worked on.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if quietPaths[c.Request.URL.Path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		status := c.Writer.Status()

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"latencyMs", time.Since(start).Milliseconds(),
			"clientIP", c.ClientIP(),
		}
		for _, key := range []string{ContextKeyRequestID, ContextKeyCorrelationID, ContextKeyTraceID, ContextKeyOperatorID} {
			if v, ok := c.Get(key); ok {
				attrs = append(attrs, key, v)
			}
		}
		if orderID := c.Param("orderId"); orderID != "" {
			attrs = append(attrs, "orderId", orderID)
		}
		if itemCode := c.Param("itemCode"); itemCode != "" {
			attrs = append(attrs, "itemCode", itemCode)
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "HTTP request", attrs...)
	}
}

// Recovery turns panics, including internal consistency failures raised by the transfer
// ledgers, into a logged 500 response.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered",
					"error", err,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"requestId", GetRequestID(c),
					"correlationId", GetCorrelationID(c),
				)
				AbortWithAppError(c, errors.ErrInternal("An unexpected error occurred"))
			}
		}()
		c.Next()
	}
}

// GetRequestID extracts request ID from context
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}

// GetCorrelationID extracts correlation ID from context
func GetCorrelationID(c *gin.Context) string {
	return c.GetString(ContextKeyCorrelationID)
}
