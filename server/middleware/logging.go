package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/logger"
)

// RequestLogger returns a Gin middleware that logs method, path, status and
// latency. Probe endpoints and event streams are skipped.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isQuietPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		path := c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			path = path + "?" + q
		}

		fields := map[string]interface{}{
			"method":             c.Request.Method,
			"path":               path,
			"status":             status,
			logger.FieldDuration: latency.Milliseconds(),
			"client":             c.ClientIP(),
		}
		if status >= 500 {
			fields["size"] = c.Writer.Size()
		}
		if latency > 500*time.Millisecond {
			fields["slow"] = true
		}
		if len(c.Errors) > 0 {
			fields[logger.FieldError] = c.Errors.String()
		}
		logByStatus(log.WithContext(c.Request.Context()), fields, status)
	}
}

func isQuietPath(path string) bool {
	switch path {
	case "/health", "/livez", "/readyz", "/metrics":
		return true
	}
	// SSE connections stay open for minutes; their open and close are logged
	// by the stream handler.
	return strings.HasSuffix(path, "/events")
}

// logByStatus logs request fields at the appropriate level based on HTTP status code.
func logByStatus(log *logger.Logger, fields map[string]interface{}, status int) {
	switch {
	case status >= 500:
		log.Error("Request completed", fields)
	case status >= 400:
		log.Warn("Request completed", fields)
	default:
		log.Debug("Request completed", fields)
	}
}
