package factory

import (
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/bedrock"
	"github.com/inercia/go-baski/pkg/providers/deepseek"
	"github.com/inercia/go-baski/pkg/providers/gemini"
	"github.com/inercia/go-baski/pkg/providers/mock"
	"github.com/inercia/go-baski/pkg/providers/ollama"
	"github.com/inercia/go-baski/pkg/providers/openai"
	"github.com/inercia/go-baski/pkg/providers/openrouter"
)

// Builtin returns a registry with all providers of this module.
func Builtin() *Registry {
	r := NewRegistry()

	r.Register("openai", func(config llm.ClientConfig) (llm.Client, error) {
		return openai.NewClient(config)
	})
	r.Register("openrouter", func(config llm.ClientConfig) (llm.Client, error) {
		return openrouter.NewClient(config)
	})
	r.Register("deepseek", func(config llm.ClientConfig) (llm.Client, error) {
		return deepseek.NewClient(config)
	})
	r.Register("gemini", func(config llm.ClientConfig) (llm.Client, error) {
		return gemini.NewClient(config)
	})
	r.Register("ollama", func(config llm.ClientConfig) (llm.Client, error) {
		return ollama.NewClient(config)
	})
	r.Register("bedrock", func(config llm.ClientConfig) (llm.Client, error) {
		return bedrock.NewClient(config)
	})

	mockConstructor := func(config llm.ClientConfig) (llm.Client, error) {
		return mock.NewClient(config.Model, "mock"), nil
	}
	r.Register("mock", mockConstructor)
	r.Register("mocked", mockConstructor)

	return r
}
