package openrouter

import (
	"context"
	"errors"
	"io"

	"github.com/revrost/go-openrouter"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/providerr"
)

// Client implements the llm.Client interface for OpenRouter
type Client struct {
	client *openrouter.Client
	model  string
}

// NewClient creates a new OpenRouter client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, httperr.New(httperr.KindUnauthorized, 0, "API key is required for OpenRouter")
	}

	clientConfig := openrouter.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if siteURL, ok := config.Extra["site_url"]; ok {
		clientConfig.HttpReferer = siteURL
	}
	if appName, ok := config.Extra["app_name"]; ok {
		clientConfig.XTitle = appName
	}

	return &Client{
		client: openrouter.NewClientWithConfig(*clientConfig),
		model:  config.ModelOr(llm.DefaultOpenRouterModel),
	}, nil
}

// StreamChatCompletion performs a streaming chat completion request
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.convertRequest(req))
	if err != nil {
		return nil, convertError(err)
	}

	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, llm.NewDoneEvent(llm.FinishReasonStop))
				return
			}
			if err != nil {
				send(ctx, ch, llm.NewErrorEvent(convertError(err)))
				return
			}
			if len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			if choice.Delta.Content != "" {
				if !send(ctx, ch, llm.NewDeltaEvent(choice.Delta.Content)) {
					return
				}
			}
			if reason := string(choice.FinishReason); reason != "" {
				send(ctx, ch, llm.NewDoneEvent(reason))
				if reason == llm.FinishReasonStop {
					return
				}
			}
		}
	}()

	return ch, nil
}

func send(ctx context.Context, ch chan<- llm.StreamEvent, ev llm.StreamEvent) bool {
	select {
	case ch <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// convertRequest converts our llm.ChatRequest to OpenRouter format
func (c *Client) convertRequest(req llm.ChatRequest) openrouter.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	out := openrouter.ChatCompletionRequest{
		Model:    model,
		Messages: make([]openrouter.ChatCompletionMessage, 0, len(req.Messages)),
		Stream:   true,
	}
	if req.Temperature != nil {
		out.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	if req.TopP != nil {
		out.TopP = *req.TopP
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, openrouter.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: openrouter.Content{Text: msg.Content},
		})
	}
	return out
}

// ModelInfo returns information about the model
func (c *Client) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "openrouter",
		MaxTokens:         128000,
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	return nil
}

// convertError converts OpenRouter errors to the canonical taxonomy
func convertError(err error) error {
	var apiErr *openrouter.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return providerr.FromStatus(apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}
	var reqErr *openrouter.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return providerr.FromStatus(reqErr.HTTPStatusCode, err)
	}
	return providerr.Convert(err)
}
