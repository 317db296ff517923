// Package openrouter implements llm.Client for OpenRouter on top of
// github.com/revrost/go-openrouter.
//
// Extra config keys:
//   - site_url: sent as HTTP-Referer for OpenRouter rankings
//   - app_name: sent as X-Title
package openrouter
