package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder receives one observation per request.
type RequestRecorder interface {
	RecordRequestStart(ctx context.Context)
	RecordRequestEnd(ctx context.Context, route, method string, status int, duration time.Duration)
}

// Metrics returns a Gin middleware that reports requests to rec. The route
// is the matched pattern, so /api/transcriptions/:id stays one series.
func Metrics(rec RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rec.RecordRequestStart(ctx)
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		rec.RecordRequestEnd(ctx, route, c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}
