// Configuration types for provider clients
package llm

import "time"

const (
	DefaultOpenAIModel     = "gpt-4o-mini"
	DefaultGeminiModel     = "gemini-1.5-flash"
	DefaultOllamaModel     = "gpt-oss:20b"
	DefaultDeepSeekModel   = "deepseek-chat"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultBedrockModel    = "anthropic.claude-3-haiku-20240307-v1:0"
)

const DefaultOllamaBaseURL = "http://localhost:11434"

const DefaultTimeout = 60 * time.Second

// ClientConfig holds configuration for creating LLM clients
type ClientConfig struct {
	Provider string            `json:"provider"` // openai, gemini, ollama, deepseek, openrouter, bedrock, mock
	Model    string            `json:"model"`
	APIKey   string            `json:"api_key,omitempty"`
	BaseURL  string            `json:"base_url,omitempty"`
	Timeout  time.Duration     `json:"timeout,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"` // Provider-specific configs
}

// TimeoutOr returns the configured timeout or def when unset.
func (c ClientConfig) TimeoutOr(def time.Duration) time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return def
}

// ModelOr returns the configured model or def when unset.
func (c ClientConfig) ModelOr(def string) string {
	if c.Model != "" {
		return c.Model
	}
	return def
}
