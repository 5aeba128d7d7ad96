package logger

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is echoed back on every response.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "requestID"
)

// GinMiddleware logs one line per request. 4xx responses log at WARN,
// 5xx at ERROR.
func GinMiddleware(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header(RequestIDHeader, reqID)

		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}

		attrs := []any{
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		log.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// RequestID returns the id assigned by GinMiddleware, if any.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
