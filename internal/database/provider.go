package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// OpenFunc connects to a backend, applies its migrations and returns the store.
type OpenFunc func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]OpenFunc)
)

// RegisterBackend registers a store constructor under a driver name.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(driver string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[driver] = open
}

// Backends returns the registered driver names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the store for cfg.Driver.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	backendsMu.RLock()
	open, ok := backends[cfg.Driver]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown database driver %q (registered: %v)", cfg.Driver, Backends())
	}
	return open(ctx, cfg)
}
