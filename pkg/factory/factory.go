package factory

import (
	"fmt"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
)

const DefaultProvider = "openai"

// Factory creates LLM clients based on configuration
type Factory struct {
	registry *Registry
}

// New creates a new client factory backed by registry. A nil registry means
// Builtin.
func New(registry *Registry) *Factory {
	if registry == nil {
		registry = Builtin()
	}
	return &Factory{registry: registry}
}

// CreateClient creates an LLM client based on the configuration. An empty
// provider selects DefaultProvider.
func (f *Factory) CreateClient(config llm.ClientConfig) (llm.Client, error) {
	provider := config.Provider
	if provider == "" {
		provider = DefaultProvider
	}

	constructor, ok := f.registry.Lookup(provider)
	if !ok {
		return nil, httperr.New(httperr.KindBadRequest, 0,
			fmt.Sprintf("unsupported provider %q (available: %v)", provider, f.registry.Names()))
	}

	client, err := constructor(config)
	if err != nil {
		return nil, fmt.Errorf("creating %s client: %w", provider, err)
	}
	return client, nil
}

// Providers returns the names CreateClient accepts.
func (f *Factory) Providers() []string {
	return f.registry.Names()
}
