// Package openai implements llm.Client for OpenAI and OpenAI-compatible
// endpoints on top of github.com/sashabaranov/go-openai.
//
// Features:
// - Streaming chat completions
// - Whisper audio transcription
// - Custom base URLs for compatible servers
package openai
