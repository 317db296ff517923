package factory

import (
	"slices"
	"strings"
	"sync"

	"github.com/inercia/go-baski/pkg/llm"
)

// Constructor creates a new client for a provider
type Constructor func(config llm.ClientConfig) (llm.Client, error)

// Registry holds provider constructors by name. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Constructor)}
}

// Register adds or replaces the constructor for name. Names are case
// insensitive.
func (r *Registry) Register(name string, constructor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(name)] = constructor
}

// Lookup returns the constructor registered for name.
func (r *Registry) Lookup(name string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	constructor, ok := r.providers[strings.ToLower(name)]
	return constructor, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
