// Package deepseek implements llm.Client for the DeepSeek API on top of
// github.com/cohesion-org/deepseek-go.
package deepseek
