package middleware

import (
	"time"

	"github.com/bhandras/replbox/pkg/logger"
	"github.com/gin-gonic/gin"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)
		statusCode := c.Writer.Status()

		// Log format: [method] path?query - status (latency)
		if raw != "" {
			path = path + "?" + raw
		}

		switch {
		case statusCode >= 500:
			logger.Errorf("[api] [%s] %s - %d (%v)", c.Request.Method, path, statusCode, latency)
		case len(c.Errors) > 0:
			logger.Warnf("[api] [%s] %s - %d (%v): %s", c.Request.Method, path, statusCode, latency, c.Errors.String())
		default:
			logger.Debugf("[api] [%s] %s - %d (%v)", c.Request.Method, path, statusCode, latency)
		}
	}
}
