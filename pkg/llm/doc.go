// Package llm holds the provider-agnostic chat types shared by the
// completion layer and the provider adapters.
//
// The main components include:
//
// - Client interface: streaming chat completion implemented by every provider
// - Message types: role-tagged text messages and history validation
// - Stream events: delta, done and error events emitted by providers
// - Prompts: named prompt templates with per-prompt request overrides
//
// Provider implementations are located in separate packages under /pkg/providers/
// to maintain clean separation of concerns and avoid import cycles.
package llm
