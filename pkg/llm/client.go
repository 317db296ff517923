// Client interfaces and core streaming functionality
package llm

import "context"

// Client defines the core interface that all LLM clients must implement
type Client interface {
	// StreamChatCompletion starts a streaming chat completion. The returned
	// channel is closed after a done or error event.
	StreamChatCompletion(ctx context.Context, req ChatRequest) (<-chan StreamEvent, error)

	// ModelInfo returns information about the model being used
	ModelInfo() ModelInfo

	// Close cleans up any resources used by the client
	Close() error
}
