package providers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/petal-labs/verdant/core"
)

// TransportFactory creates a default-provider transport with the given API key.
type TransportFactory func(apiKey string) core.Transport

// registry holds registered transport factories keyed by backend name.
var (
	registryMu sync.RWMutex
	registry   = make(map[string]TransportFactory)
)

// Register adds a transport factory to the registry.
// It is typically called from a transport package's init() function.
// If a factory with the same name is already registered, it will be overwritten.
func Register(name string, factory TransportFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Get retrieves a transport factory by name.
// Returns nil if the name is not registered.
func Get(name string) TransportFactory {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return registry[name]
}

// Create creates a new transport by backend name with the given API key.
// Returns an error if the name is not registered.
func Create(name, apiKey string) (core.Transport, error) {
	factory := Get(name)
	if factory == nil {
		return nil, fmt.Errorf("unknown backend: %s (available: %v)", name, List())
	}
	return factory(apiKey), nil
}

// List returns the names of all registered backends in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered returns true if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
