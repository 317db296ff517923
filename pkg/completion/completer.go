package completion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/retry"
)

// Chunk is one element of a completion stream.
type Chunk struct {
	// Text is everything generated so far in this attempt.
	Text    string
	Attempt int
	Err     error
}

// Completer streams chat completions from a provider client.
type Completer struct {
	client       llm.Client
	chunkLength  int
	policy       retry.Policy
	systemPrompt string
	prompts      llm.PromptCatalog
	defaults     llm.ChatRequest
	logger       *slog.Logger
}

type Option func(*Completer)

func WithChunkLength(n int) Option {
	return func(c *Completer) {
		if n > 0 {
			c.chunkLength = n
		}
	}
}

// WithRetryPolicy replaces the retry policy. A policy without a Retryable
// predicate retries the transient kinds.
func WithRetryPolicy(p retry.Policy) Option {
	return func(c *Completer) { c.policy = p }
}

// WithSystemPrompt prepends a system message to every request that has none.
func WithSystemPrompt(prompt string) Option {
	return func(c *Completer) { c.systemPrompt = prompt }
}

func WithPrompts(p llm.PromptCatalog) Option {
	return func(c *Completer) { c.prompts = p }
}

// WithDefaults sets request parameters used when a request leaves them unset.
func WithDefaults(req llm.ChatRequest) Option {
	return func(c *Completer) { c.defaults = req }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Completer) { c.logger = l }
}

// New creates a completer over client.
func New(client llm.Client, opts ...Option) *Completer {
	c := &Completer{
		client:      client,
		chunkLength: DefaultChunkLength,
		policy:      retry.Policy{Service: client.ModelInfo().Provider},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.policy.Logger == nil {
		c.policy.Logger = c.logger
	}
	if c.policy.Service == "" {
		c.policy.Service = client.ModelInfo().Provider
	}
	return c
}

// Stream runs req and emits coalesced chunks on the returned channel, which
// is closed when the completion ends. Failures are delivered as a final
// chunk with Err set. Cancellation closes the channel without an error.
func (c *Completer) Stream(ctx context.Context, req llm.ChatRequest) <-chan Chunk {
	return c.stream(ctx, c.prepare(req), "custom")
}

// Complete runs req and returns the full text.
func (c *Completer) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	var text string
	for chunk := range c.Stream(ctx, req) {
		if chunk.Err != nil {
			return "", chunk.Err
		}
		text = chunk.Text
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return text, nil
}

func (c *Completer) prepare(req llm.ChatRequest) llm.ChatRequest {
	if req.Model == "" {
		req.Model = c.defaults.Model
	}
	if req.Temperature == nil {
		req.Temperature = c.defaults.Temperature
	}
	if req.MaxTokens == nil {
		req.MaxTokens = c.defaults.MaxTokens
	}
	if req.TopP == nil {
		req.TopP = c.defaults.TopP
	}
	if c.systemPrompt != "" && (len(req.Messages) == 0 || req.Messages[0].Role != llm.RoleSystem) {
		msgs := make([]llm.Message, 0, len(req.Messages)+1)
		msgs = append(msgs, llm.NewSystemMessage(c.systemPrompt))
		req.Messages = append(msgs, req.Messages...)
	}
	return req
}

func (c *Completer) stream(ctx context.Context, req llm.ChatRequest, requestID string) <-chan Chunk {
	out := make(chan Chunk)

	policy := c.policy
	if policy.Retryable == nil {
		policy.Retryable = retry.Transient
	}

	go func() {
		defer close(out)

		attempt := 0
		_, err := retry.Do(ctx, policy, func(ctx context.Context) (struct{}, error) {
			attempt++
			return struct{}{}, c.consume(ctx, req, attempt, out)
		})
		if err == nil || ctx.Err() != nil {
			return
		}

		switch {
		case httperr.IsKind(err, httperr.KindBadRequest):
			err = fmt.Errorf("invalid request %q for user %q: %w", requestID, req.User, err)
		case !httperr.IsKind(err, httperr.KindUnavailable):
			err = fmt.Errorf("request %q for user %q: %w", requestID, req.User, err)
		}
		c.logger.Error("completion failed", "request_id", requestID, "user", req.User, "error", err)
		select {
		case out <- Chunk{Err: err, Attempt: attempt}:
		case <-ctx.Done():
		}
	}()

	return out
}

// consume runs one provider stream through a fresh accumulator.
func (c *Completer) consume(ctx context.Context, req llm.ChatRequest, attempt int, out chan<- Chunk) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events, err := c.client.StreamChatCompletion(ctx, req)
	if err != nil {
		return err
	}

	emit := func(text string) error {
		select {
		case out <- Chunk{Text: text, Attempt: attempt}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	acc := NewAccumulator(c.chunkLength)
loop:
	for {
		var (
			ev llm.StreamEvent
			ok bool
		)
		select {
		case ev, ok = <-events:
		case <-ctx.Done():
			return ctx.Err()
		}
		if !ok {
			break loop
		}

		switch {
		case ev.IsError():
			return ev.Err
		case ev.IsDone():
			if ev.FinishReason == llm.FinishReasonStop || ev.FinishReason == "" {
				break loop
			}
			c.logger.Debug("stream finished early", "reason", ev.FinishReason)
		case ev.IsDelta():
			if text, ok := acc.Add(ev.Delta); ok {
				if err := emit(text); err != nil {
					return err
				}
			}
		}
	}

	if text, ok := acc.Finish(); ok {
		return emit(text)
	}
	return nil
}

// PromptRequest asks for a completion of a named prompt or a literal one.
type PromptRequest struct {
	UserID string
	// Prompt is a catalog name, or the prompt text itself when not found.
	Prompt  string
	Params  map[string]any
	History []llm.Message
	// Prepend puts the prompt before the history instead of after it.
	Prepend bool
}

// FromPrompt builds a request from the prompt catalog and streams it.
func (c *Completer) FromPrompt(ctx context.Context, pr PromptRequest) (<-chan Chunk, error) {
	if err := llm.ValidateHistory(pr.History); err != nil {
		return nil, err
	}

	requestID := "custom"
	text := pr.Prompt
	req := llm.ChatRequest{User: pr.UserID}

	if p, ok := c.prompts.Lookup(pr.Prompt); ok {
		requestID = pr.Prompt
		rendered, err := p.Render(pr.Params)
		if err != nil {
			return nil, httperr.New(httperr.KindBadRequest, 0, fmt.Sprintf("prompt %q: %v", pr.Prompt, err))
		}
		text = rendered
		p.Apply(&req)
	}

	msg := llm.NewUserMessage(text)
	if pr.Prepend {
		req.Messages = append([]llm.Message{msg}, pr.History...)
	} else {
		req.Messages = append(append([]llm.Message{}, pr.History...), msg)
	}

	return c.stream(ctx, c.prepare(req), requestID), nil
}

// IsUnavailable reports whether err means the provider could not be
// reached within the retry budget.
func IsUnavailable(err error) bool {
	return errors.Is(err, httperr.KindUnavailable)
}
