// Package config holds the typed application settings.
//
// Settings are read from an optional YAML file, BASKI_ prefixed environment
// variables (BASKI_HTTP_MAX_ATTEMPTS for http.max_attempts) and defaults.
// The environment wins over the file. Settings are validated once when
// loaded.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/inercia/go-baski/pkg/completion"
	"github.com/inercia/go-baski/pkg/httpclient"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/retry"
	"github.com/inercia/go-baski/pkg/scrapfly"
)

type LLMSettings struct {
	Provider string            `mapstructure:"provider" json:"provider"`
	Model    string            `mapstructure:"model" json:"model,omitempty"`
	APIKey   string            `mapstructure:"api_key" json:"api_key,omitempty"`
	BaseURL  string            `mapstructure:"base_url" json:"base_url,omitempty"`
	Timeout  time.Duration     `mapstructure:"timeout" json:"timeout,omitempty"`
	Extra    map[string]string `mapstructure:"extra" json:"extra,omitempty"`
}

type HTTPSettings struct {
	BaseURL     string        `mapstructure:"base_url" json:"base_url,omitempty"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
	MinInterval time.Duration `mapstructure:"min_interval" json:"min_interval"`
	MaxAttempts int           `mapstructure:"max_attempts" json:"max_attempts"`
	Proxy       string        `mapstructure:"proxy" json:"proxy,omitempty"`
	UserAgent   string        `mapstructure:"user_agent" json:"user_agent,omitempty"`
}

type RetrySettings struct {
	Times           int           `mapstructure:"times" json:"times"`
	MinWait         time.Duration `mapstructure:"min_wait" json:"min_wait"`
	MaxWait         time.Duration `mapstructure:"max_wait" json:"max_wait"`
	HonorRetryAfter bool          `mapstructure:"honor_retry_after" json:"honor_retry_after"`
}

type CompletionSettings struct {
	ChunkLength  int               `mapstructure:"chunk_length" json:"chunk_length"`
	SystemPrompt string            `mapstructure:"system_prompt" json:"system_prompt,omitempty"`
	Temperature  float32           `mapstructure:"temperature" json:"temperature,omitempty"`
	MaxTokens    int               `mapstructure:"max_tokens" json:"max_tokens,omitempty"`
	Prompts      llm.PromptCatalog `mapstructure:"prompts" json:"prompts,omitempty"`
}

type ScrapflySettings struct {
	APIKey   string        `mapstructure:"api_key" json:"api_key,omitempty"`
	Interval time.Duration `mapstructure:"interval" json:"interval"`
}

type StoreSettings struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn,omitempty"`
}

// Settings is the whole configuration tree.
type Settings struct {
	Debug       bool               `mapstructure:"debug" json:"debug"`
	Concurrency int                `mapstructure:"concurrency" json:"concurrency"`
	LLM         LLMSettings        `mapstructure:"llm" json:"llm"`
	HTTP        HTTPSettings       `mapstructure:"http" json:"http"`
	Retry       RetrySettings      `mapstructure:"retry" json:"retry"`
	Completion  CompletionSettings `mapstructure:"completion" json:"completion"`
	Scrapfly    ScrapflySettings   `mapstructure:"scrapfly" json:"scrapfly"`
	Store       StoreSettings      `mapstructure:"store" json:"store"`
}

// defaults are registered with viper so every key can also come from the
// environment.
var defaults = map[string]any{
	"debug":                    false,
	"concurrency":              10,
	"llm.provider":             "openai",
	"llm.model":                "",
	"llm.api_key":              "",
	"llm.base_url":             "",
	"llm.timeout":              llm.DefaultTimeout,
	"http.base_url":            "",
	"http.timeout":             httpclient.DefaultTimeout,
	"http.min_interval":        time.Duration(0),
	"http.max_attempts":        httpclient.DefaultMaxAttempts,
	"http.proxy":               "",
	"http.user_agent":          "",
	"retry.times":              retry.DefaultTimes,
	"retry.min_wait":           retry.DefaultMinWait,
	"retry.max_wait":           retry.DefaultMaxWait,
	"retry.honor_retry_after":  false,
	"completion.chunk_length":  completion.DefaultChunkLength,
	"completion.system_prompt": "",
	"completion.temperature":   0,
	"completion.max_tokens":    0,
	"scrapfly.api_key":         "",
	"scrapfly.interval":        scrapfly.DefaultInterval,
	"store.driver":             "memory",
	"store.dsn":                "",
}

var validDrivers = []string{"memory", "postgres", "postgresql", "pgx", "mysql"}

// Validate reports every invalid setting at once.
func (s Settings) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(s.Concurrency > 0, "concurrency must be positive, got %d", s.Concurrency)
	check(s.LLM.Timeout >= 0, "llm.timeout must not be negative")
	check(s.HTTP.Timeout > 0, "http.timeout must be positive")
	check(s.HTTP.MinInterval >= 0, "http.min_interval must not be negative")
	check(s.HTTP.MaxAttempts >= 0, "http.max_attempts must not be negative, got %d", s.HTTP.MaxAttempts)
	if s.HTTP.Proxy != "" {
		_, err := url.Parse(s.HTTP.Proxy)
		check(err == nil, "http.proxy: %v", err)
	}
	check(s.Retry.Times >= 2, "retry.times must be at least 2, got %d", s.Retry.Times)
	check(s.Retry.MinWait > 0, "retry.min_wait must be positive")
	check(s.Retry.MaxWait >= s.Retry.MinWait, "retry.max_wait (%s) must not be below retry.min_wait (%s)", s.Retry.MaxWait, s.Retry.MinWait)
	check(s.Completion.ChunkLength > 0, "completion.chunk_length must be positive, got %d", s.Completion.ChunkLength)
	check(s.Completion.MaxTokens >= 0, "completion.max_tokens must not be negative")
	if err := s.Completion.Prompts.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("completion.prompts: %w", err))
	}
	check(s.Scrapfly.Interval >= 0, "scrapfly.interval must not be negative")

	driver := strings.ToLower(s.Store.Driver)
	known := false
	for _, d := range validDrivers {
		known = known || d == driver
	}
	check(known, "store.driver %q is not one of %v", s.Store.Driver, validDrivers)
	check(driver == "memory" || s.Store.DSN != "", "store.dsn is required for driver %q", s.Store.Driver)

	return errors.Join(errs...)
}

// ClientConfig returns the provider client configuration.
func (s Settings) ClientConfig() llm.ClientConfig {
	return llm.ClientConfig{
		Provider: s.LLM.Provider,
		Model:    s.LLM.Model,
		APIKey:   s.LLM.APIKey,
		BaseURL:  s.LLM.BaseURL,
		Timeout:  s.LLM.Timeout,
		Extra:    s.LLM.Extra,
	}
}

// HTTPOptions returns the httpclient options for these settings.
func (s Settings) HTTPOptions(logger *slog.Logger) []httpclient.Option {
	opts := []httpclient.Option{
		httpclient.WithTimeout(s.HTTP.Timeout),
		httpclient.WithMinInterval(s.HTTP.MinInterval),
		httpclient.WithMaxAttempts(s.HTTP.MaxAttempts),
		httpclient.WithProxy(s.HTTP.Proxy),
		httpclient.WithLogger(logger),
	}
	if s.HTTP.BaseURL != "" {
		opts = append(opts, httpclient.WithBaseURL(s.HTTP.BaseURL))
	}
	if s.HTTP.UserAgent != "" {
		opts = append(opts, httpclient.WithUserAgent(s.HTTP.UserAgent))
	}
	if s.Debug {
		opts = append(opts, httpclient.WithMiddleware(httpclient.Logging(logger)))
	}
	return opts
}

// RetryPolicy returns the completion retry policy.
func (s Settings) RetryPolicy(logger *slog.Logger) retry.Policy {
	p := retry.Policy{
		Times:   s.Retry.Times,
		MinWait: s.Retry.MinWait,
		MaxWait: s.Retry.MaxWait,
		Service: s.LLM.Provider,
		Logger:  logger,
	}
	if s.Retry.HonorRetryAfter {
		p.Wait = retry.HonorRetryAfter(retry.JitteredWait)
	}
	return p
}

// CompletionOptions returns the completer options for these settings.
func (s Settings) CompletionOptions(logger *slog.Logger) []completion.Option {
	defaults := llm.ChatRequest{Model: s.LLM.Model}
	if s.Completion.Temperature > 0 {
		t := s.Completion.Temperature
		defaults.Temperature = &t
	}
	if s.Completion.MaxTokens > 0 {
		n := s.Completion.MaxTokens
		defaults.MaxTokens = &n
	}

	return []completion.Option{
		completion.WithChunkLength(s.Completion.ChunkLength),
		completion.WithSystemPrompt(s.Completion.SystemPrompt),
		completion.WithPrompts(s.Completion.Prompts),
		completion.WithRetryPolicy(s.RetryPolicy(logger)),
		completion.WithDefaults(defaults),
		completion.WithLogger(logger),
	}
}
