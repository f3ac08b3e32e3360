package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const loggerKey = "logger"

// RequestLogger replaces gin's default logger with one slog line per
// request. Handlers can fetch a request-scoped logger with Logger.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Set(loggerKey, logger.With("method", c.Request.Method, "path", path))

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if v := GetVisitor(c); v != nil {
			attrs = append(attrs, "visitor", v.ID)
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "Request", attrs...)
	}
}

// Logger returns the request-scoped logger, or slog's default
func Logger(c *gin.Context) *slog.Logger {
	if val, ok := c.Get(loggerKey); ok {
		if l, ok := val.(*slog.Logger); ok {
			return l
		}
	}
	return slog.Default()
}
