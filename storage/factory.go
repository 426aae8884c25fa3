package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fernandomesquita/stenopro/logger"
)

// Factory creates a Storage from the storage config. Backend packages
// register one from init.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a backend factory under a provider name.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the sorted names of the registered backends.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for n := range factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New creates the Storage selected by cfg.Provider. The backend package must
// have been imported, e.g. _ "github.com/fernandomesquita/stenopro/storage/local".
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (not registered)", cfg.Provider)
	}

	l := log.WithComponent("storage")
	l.Info("initializing storage", map[string]interface{}{"provider": cfg.Provider})
	return f(ctx, cfg, l)
}
