package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fernandomesquita/stenopro/component"
)

// InfrastructureInfo describes one infrastructure component.
type InfrastructureInfo struct {
	Name    string
	Type    string // "database", "storage", "server", "redis", ...
	Details string
	Port    int
}

// RouteInfo is one registered HTTP route.
type RouteInfo struct {
	Method  string
	Path    string
	Handler string
}

// ClientInfo is an external service the application calls.
type ClientInfo struct {
	Name   string
	Target string
	Status string
	Type   string // "http", "kafka", ...
}

// Summary collects what the service started with and prints it once the
// service is ready.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	infrastructure  []InfrastructureInfo
	routes          []RouteInfo
	clients         []ClientInfo
}

// NewSummary creates an empty summary.
func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackInfrastructure adds an infrastructure component.
func (s *Summary) TrackInfrastructure(info InfrastructureInfo) {
	s.infrastructure = append(s.infrastructure, info)
}

// TrackRoute records an HTTP route.
func (s *Summary) TrackRoute(method, path, handler string) {
	s.routes = append(s.routes, RouteInfo{Method: method, Path: path, Handler: handler})
}

// TrackClient records an external client.
func (s *Summary) TrackClient(name, target, status, clientType string) {
	s.clients = append(s.clients, ClientInfo{Name: name, Target: target, Status: status, Type: clientType})
}

// Routes returns the tracked routes.
func (s *Summary) Routes() []RouteInfo { return s.routes }

// CollectFromRegistry tracks every Describable component not tracked yet.
func (s *Summary) CollectFromRegistry(registry *component.Registry) {
	if registry == nil {
		return
	}
	seen := make(map[string]bool, len(s.infrastructure))
	for _, inf := range s.infrastructure {
		seen[inf.Name] = true
	}
	for _, c := range registry.All() {
		d, ok := c.(component.Describable)
		if !ok {
			continue
		}
		desc := d.Describe()
		if desc.Name == "" {
			desc.Name = c.Name()
		}
		if seen[desc.Name] {
			continue
		}
		seen[desc.Name] = true
		s.TrackInfrastructure(InfrastructureInfo{Name: desc.Name, Type: desc.Type, Details: desc.Details, Port: desc.Port})
	}
}

// Display writes the summary to w, with live health from registry.
func (s *Summary) Display(w io.Writer, registry *component.Registry) {
	p := func(format string, args ...any) { _, _ = fmt.Fprintf(w, format, args...) }

	p("\n%s %s started in %.2fs\n", s.serviceName, displayVersion(s.version), s.startupDuration.Seconds())

	if len(s.infrastructure) > 0 {
		p("\nInfrastructure\n")
		for i, inf := range s.infrastructure {
			details := inf.Details
			if inf.Port > 0 {
				details = fmt.Sprintf("%s (:%d)", details, inf.Port)
			}
			p("   %s [%s] %s: %s\n", treePrefix(i, len(s.infrastructure)), inf.Type, inf.Name, details)
		}
	}

	if len(s.clients) > 0 {
		p("\nClients\n")
		for i, c := range s.clients {
			p("   %s %s -> %s [%s] (%s)\n", treePrefix(i, len(s.clients)), c.Name, c.Target, c.Type, c.Status)
		}
	}

	if len(s.routes) > 0 {
		p("\nRoutes (%d)\n", len(s.routes))
		for i, r := range s.routes {
			p("   %s %-7s %s -> %s\n", treePrefix(i, len(s.routes)), r.Method, r.Path, r.Handler)
		}
	}

	if registry != nil {
		results := registry.HealthAll(context.Background())
		if len(results) > 0 {
			p("\nHealth\n")
			healthy := 0
			for i, h := range results {
				msg := ""
				if h.Message != "" {
					msg = " (" + h.Message + ")"
				}
				p("   %s %s %s: %s%s\n", treePrefix(i, len(results)), healthMark(h.Status), h.Name, strings.ToLower(string(h.Status)), msg)
				if h.Status == component.StatusHealthy {
					healthy++
				}
			}
			if healthy == len(results) {
				p("\nAll components healthy (%d/%d)\n", healthy, len(results))
			} else {
				p("\nSome components have issues (%d/%d healthy)\n", healthy, len(results))
			}
		}
	}
	p("\n")
}

func displayVersion(v string) string {
	if v == "" {
		return "(dev)"
	}
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func healthMark(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "[ok]"
	case component.StatusDegraded:
		return "[degraded]"
	case component.StatusUnhealthy:
		return "[down]"
	default:
		return "[?]"
	}
}
