package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"smc-advisor/internal/logging"
)

const traceHeader = "X-Trace-ID"

// requestLogger attaches a traced logger to the request context and logs
// each completed request
func requestLogger(base *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		ctx := logging.NewContext(c.Request.Context(), base)
		ctx, l := logging.WithTraceContext(ctx, c.GetHeader(traceHeader))
		c.Request = c.Request.WithContext(ctx)
		c.Header(traceHeader, logging.TraceIDFromContext(ctx))

		c.Next()

		status := c.Writer.Status()
		l = l.WithDuration(time.Since(start))
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", status,
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= 500:
			l.Error("Request failed", kv...)
		case c.Request.URL.Path == "/health":
			l.Debug("Request completed", kv...)
		default:
			l.Info("Request completed", kv...)
		}
	}
}
