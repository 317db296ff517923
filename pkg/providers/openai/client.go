package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/sashabaranov/go-openai"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/providerr"
)

// ModelAttribute represents a model attribute with its pattern and value
type ModelAttribute[T any] struct {
	Pattern *regexp.Regexp
	Value   T
}

// Context length patterns - maximum tokens for different models
var contextLength = []ModelAttribute[int]{
	{regexp.MustCompile(`^gpt-4o(-mini)?`), 128000},
	{regexp.MustCompile(`^gpt-4\.1`), 1047576},
	{regexp.MustCompile(`^gpt-4-turbo`), 128000},
	{regexp.MustCompile(`^gpt-4-32k`), 32768},
	{regexp.MustCompile(`^gpt-4`), 8192},
	{regexp.MustCompile(`^gpt-3\.5-turbo-16k`), 16384},
	{regexp.MustCompile(`^gpt-3\.5-turbo`), 4096},
	{regexp.MustCompile(`.*`), 4096},
}

// getModelAttribute returns the attribute value for a given model by matching against patterns
func getModelAttribute[T any](model string, attributes []ModelAttribute[T]) T {
	for _, attr := range attributes {
		if attr.Pattern.MatchString(model) {
			return attr.Value
		}
	}
	var zero T
	return zero
}

// Client implements the llm.Client interface for OpenAI
type Client struct {
	client *openai.Client
	model  string
}

// NewClient creates a new OpenAI client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" && config.BaseURL == "" {
		return nil, httperr.New(httperr.KindUnauthorized, 0, "OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.ModelOr(llm.DefaultOpenAIModel),
	}, nil
}

// StreamChatCompletion performs a streaming chat completion request
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, c.convertRequest(req))
	if err != nil {
		return nil, c.convertError(err)
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
				send(ctx, ch, llm.NewErrorEvent(c.convertError(err)))
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
			if choice.FinishReason != "" {
				send(ctx, ch, llm.NewDoneEvent(string(choice.FinishReason)))
				if choice.FinishReason == openai.FinishReasonStop {
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

func (c *Client) convertRequest(req llm.ChatRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	out := openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
		User:     req.User,
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

// Transcribe converts speech audio to text with Whisper. name is the file
// name reported to the API; its extension selects the audio format.
func (c *Client) Transcribe(ctx context.Context, name string, audio io.Reader) (string, error) {
	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: name,
		Reader:   audio,
	})
	if err != nil {
		return "", c.convertError(err)
	}
	return resp.Text, nil
}

// ModelInfo returns information about the model
func (c *Client) ModelInfo() llm.ModelInfo {
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "openai",
		MaxTokens:         getModelAttribute(c.model, contextLength),
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	return nil
}

// convertError converts OpenAI errors to the canonical taxonomy
func (c *Client) convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return providerr.FromStatus(apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return providerr.FromStatus(reqErr.HTTPStatusCode, err)
	}
	return providerr.Convert(err)
}
