package deepseek

import (
	"context"
	"errors"
	"io"

	"github.com/cohesion-org/deepseek-go"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/providerr"
)

// Client implements the llm.Client interface for DeepSeek
type Client struct {
	client *deepseek.Client
	model  string
}

// NewClient creates a new DeepSeek client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, httperr.New(httperr.KindUnauthorized, 0, "API key is required for DeepSeek")
	}

	var opts []deepseek.Option
	if config.BaseURL != "" {
		if config.BaseURL == "http://" || config.BaseURL == "https://" {
			return nil, httperr.New(httperr.KindBadRequest, 0, "base URL cannot be just a protocol")
		}
		opts = append(opts, deepseek.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, deepseek.WithTimeout(config.Timeout))
	}

	var client *deepseek.Client
	if len(opts) > 0 {
		var err error
		client, err = deepseek.NewClientWithOptions(config.APIKey, opts...)
		if err != nil {
			return nil, httperr.New(httperr.KindGeneric, 0, "failed to create DeepSeek client: "+err.Error())
		}
	} else {
		client = deepseek.NewClient(config.APIKey)
	}

	return &Client{
		client: client,
		model:  config.ModelOr(llm.DefaultDeepSeekModel),
	}, nil
}

// StreamChatCompletion performs a streaming chat completion request
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	deepseekReq := c.convertRequest(req)
	stream, err := c.client.CreateChatCompletionStream(ctx, &deepseekReq)
	if err != nil {
		return nil, providerr.Convert(err)
	}

	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)
		defer func() { _ = stream.Close() }()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(ctx, ch, llm.NewDoneEvent(llm.FinishReasonStop))
				return
			}
			if err != nil {
				send(ctx, ch, llm.NewErrorEvent(providerr.Convert(err)))
				return
			}
			if response == nil || len(response.Choices) == 0 {
				continue
			}

			choice := response.Choices[0]
			if choice.Delta.Content != "" {
				if !send(ctx, ch, llm.NewDeltaEvent(choice.Delta.Content)) {
					return
				}
			}
			if choice.FinishReason != "" {
				send(ctx, ch, llm.NewDoneEvent(choice.FinishReason))
				if choice.FinishReason == llm.FinishReasonStop {
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

func (c *Client) convertRequest(req llm.ChatRequest) deepseek.StreamChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]deepseek.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, deepseek.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	out := deepseek.StreamChatCompletionRequest{
		Model:    model,
		Messages: messages,
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
	return out
}

// ModelInfo returns information about the model
func (c *Client) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "deepseek",
		MaxTokens:         32768,
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	return nil
}
