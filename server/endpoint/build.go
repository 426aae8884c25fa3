package endpoint

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/version"
)

var booted = time.Now()

func now() string { return time.Now().UTC().Format(time.RFC3339) }

// Version serves the build stamp.
func Version() gin.HandlerFunc {
	return func(c *gin.Context) { c.JSON(http.StatusOK, version.Get()) }
}

// Info serves the build stamp with the service name and uptime.
func Info(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   serviceName,
			"build":     version.Get(),
			"uptime":    time.Since(booted).Round(time.Second).String(),
			"timestamp": now(),
		})
	}
}

const mib = 1 << 20

// Metrics serves Go runtime figures. Pipeline and HTTP metrics are exported
// over OTLP instead.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		c.JSON(http.StatusOK, gin.H{
			"timestamp":  now(),
			"goroutines": runtime.NumGoroutine(),
			"memory": gin.H{
				"alloc_mb":       ms.Alloc / mib,
				"total_alloc_mb": ms.TotalAlloc / mib,
				"sys_mb":         ms.Sys / mib,
				"gc_runs":        ms.NumGC,
			},
		})
	}
}
