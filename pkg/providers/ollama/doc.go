// Package ollama provides an LLM client for a local or remote Ollama server.
//
// Chat requests are posted to /api/chat with streaming enabled and the
// newline delimited JSON response is turned into stream events. Transport,
// retries and error classification are handled by pkg/httpclient. The
// server defaults to http://localhost:11434.
package ollama
