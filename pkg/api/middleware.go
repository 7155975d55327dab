package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aroundme/aroundme/pkg/services"
)

const traceIDContextKey = "trace_id"

// traceMiddleware assigns every request a trace id, honoring an inbound
// X-Trace-Id header, and threads it through the request context.
func traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceIDContextKey, traceID)
		c.Header("X-Trace-Id", traceID)
		c.Request = c.Request.WithContext(services.WithTraceID(c.Request.Context(), traceID))
		c.Next()
	}
}

func traceIDFrom(c *gin.Context) string {
	if id, ok := c.Get(traceIDContextKey); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// requestLogMiddleware emits one structured log line per request.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"trace_id", traceIDFrom(c))
	}
}
