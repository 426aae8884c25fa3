package server

import (
	"cmp"
	"path"
	"slices"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/fernandomesquita/stenopro/bootstrap"
)

// systemPaths are the probe and info routes registered by ApplyDefaults.
// They bypass authentication and are listed last in the summary.
var systemPaths = []string{"/health", "/info", "/livez", "/metrics", "/readyz", "/version"}

func systemPathList() []string { return slices.Clone(systemPaths) }

func isSystemPath(p string) bool { return slices.Contains(systemPaths, p) }

var methodRank = map[string]int{"GET": 0, "POST": 1, "PUT": 2, "PATCH": 3, "DELETE": 4}

// TrackRoutes lists every registered route in the startup summary, API
// routes by path first and system routes after them.
func (s *Server) TrackRoutes(summary *bootstrap.Summary) {
	for _, r := range sortRoutes(s.engine.Routes()) {
		name := handlerName(r.Handler)
		if isSystemPath(r.Path) {
			name += " (system)"
		}
		summary.TrackRoute(r.Method, r.Path, name)
	}
}

func sortRoutes(routes gin.RoutesInfo) gin.RoutesInfo {
	rank := func(m string) int {
		if r, ok := methodRank[m]; ok {
			return r
		}
		return len(methodRank)
	}
	slices.SortStableFunc(routes, func(a, b gin.RouteInfo) int {
		sa, sb := isSystemPath(a.Path), isSystemPath(b.Path)
		if sa != sb {
			if sa {
				return 1
			}
			return -1
		}
		return cmp.Or(cmp.Compare(a.Path, b.Path), cmp.Compare(rank(a.Method), rank(b.Method)))
	})
	return routes
}

// handlerName shortens a Go symbol the way it reads in code:
// ".../api.(*Transcriptions).List-fm" becomes "Transcriptions.List" and an
// anonymous handler inside RegisterDefaultEndpoints.Health becomes "health".
func handlerName(symbol string) string {
	name := strings.TrimSuffix(path.Base(symbol), "-fm")
	name = strings.NewReplacer("(*", "", "(", "", ")", "").Replace(name)

	parts := strings.Split(name, ".")
	if i := slices.IndexFunc(parts, func(p string) bool { return strings.HasPrefix(p, "func") }); i > 0 {
		return strings.ToLower(parts[i-1])
	}
	if len(parts) > 1 && !strings.ContainsFunc(parts[0], unicode.IsUpper) {
		parts = parts[1:]
	}
	return strings.Join(parts, ".")
}
