package cloner

import (
	"fmt"
	"sync"
)

type Factory func(cfg Config) (Cloner, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if factory == nil {
		panic("cloner: Register factory is nil")
	}
	if _, dup := registry[name]; dup {
		panic("cloner: Register called twice for " + name)
	}
	registry[name] = factory
}

func New(name string, cfg Config) (Cloner, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("cloner: unknown backend %q (registered: %v)", name, ListBackends())
	}
	return factory(cfg)
}

func ListBackends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
