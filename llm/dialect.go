package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/fernandomesquita/stenopro/httpclient"
)

// Dialect maps universal LLM types to and from a specific provider's HTTP
// format.
type Dialect interface {
	// Name returns the dialect identifier.
	Name() string

	// ChatPath returns the API endpoint path for chat completion.
	ChatPath() string

	// HealthPath returns the health-check endpoint path. Empty means none.
	HealthPath() string

	// Auth returns the auth scheme for apiKey, or nil when the provider
	// takes no credential.
	Auth(apiKey string) *httpclient.AuthConfig

	// Headers returns fixed headers the provider requires.
	Headers() map[string]string

	// BuildRequest maps a CompletionRequest to the provider's JSON body.
	BuildRequest(req CompletionRequest) (any, error)

	// ParseResponse maps the provider's JSON body to a CompletionResponse.
	ParseResponse(body []byte) (*CompletionResponse, error)

	// ParseError extracts a human readable message from an error body.
	// It returns "" when the body has no recognizable message.
	ParseError(body []byte) string
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{}
)

// RegisterDialect adds a dialect to the global registry. Dialect packages
// call it from init.
func RegisterDialect(name string, d Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[name] = d
}

// GetDialect retrieves a dialect by name.
func GetDialect(name string) (Dialect, error) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[name]
	if !ok {
		return nil, fmt.Errorf("llm: unknown dialect %q (forgot to import driver?)", name)
	}
	return d, nil
}

// Dialects returns the sorted names of all registered dialects.
func Dialects() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
