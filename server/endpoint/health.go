// Package endpoint holds the probe and build info handlers every deployment
// exposes.
package endpoint

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/component"
)

// HealthChecker returns health status for registered components.
type HealthChecker func(ctx context.Context) []component.Health

type probeBody struct {
	Status     string             `json:"status"`
	Service    string             `json:"service"`
	Timestamp  string             `json:"timestamp"`
	Components []component.Health `json:"components,omitempty"`
}

func probe(service, status string) probeBody {
	return probeBody{Status: status, Service: service, Timestamp: time.Now().UTC().Format(time.RFC3339)}
}

func check(c *gin.Context, checker HealthChecker) []component.Health {
	if checker == nil {
		return nil
	}
	return checker(c.Request.Context())
}

func anyUnhealthy(hs []component.Health) bool {
	return slices.ContainsFunc(hs, func(h component.Health) bool {
		return h.Status == component.StatusUnhealthy
	})
}

// Health lists every component. Any unhealthy component makes it a 503.
func Health(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		hs := check(c, checker)
		body := probe(serviceName, string(component.Overall(hs)))
		body.Components = hs
		code := http.StatusOK
		if anyUnhealthy(hs) {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, body)
	}
}

// Liveness answers while the process can serve HTTP at all.
func Liveness(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, probe(serviceName, "alive"))
	}
}

// Readiness fails only on unhealthy components. A degraded event publisher
// still takes traffic.
func Readiness(serviceName string, checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if anyUnhealthy(check(c, checker)) {
			c.JSON(http.StatusServiceUnavailable, probe(serviceName, "not_ready"))
			return
		}
		c.JSON(http.StatusOK, probe(serviceName, "ready"))
	}
}
