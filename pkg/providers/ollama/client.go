package ollama

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/inercia/go-baski/pkg/httpclient"
	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/providerr"
)

// contextWindows maps model patterns to their context size. First match wins.
var contextWindows = []struct {
	pattern   *regexp.Regexp
	maxTokens int
}{
	{regexp.MustCompile(`llama3\.[1-3]`), 131072},
	{regexp.MustCompile(`gpt-oss`), 131072},
	{regexp.MustCompile(`qwen`), 32768},
	{regexp.MustCompile(`codellama`), 16384},
	{regexp.MustCompile(`llava|vision`), 4096},
}

const defaultContextWindow = 8192

// Client implements the llm.Client interface for Ollama
type Client struct {
	model string
	http  *httpclient.Client
}

// NewClient creates a new Ollama client
func NewClient(config llm.ClientConfig) (*Client, error) {
	baseURL := strings.TrimSuffix(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = llm.DefaultOllamaBaseURL
	}

	opts := []httpclient.Option{
		httpclient.WithBaseURL(baseURL),
		httpclient.WithTimeout(config.TimeoutOr(llm.DefaultTimeout)),
	}
	if config.APIKey != "" {
		opts = append(opts, httpclient.WithHeader("Authorization", "Bearer "+config.APIKey))
	}

	hc, err := httpclient.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		model: config.ModelOr(llm.DefaultOllamaModel),
		http:  hc,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatChunk struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// StreamChatCompletion performs a streaming chat completion request
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	body, err := c.http.Stream(ctx, "/api/chat",
		httpclient.Method("POST"),
		httpclient.JSON(c.convertRequest(req)),
	)
	if err != nil {
		return nil, providerr.Convert(err)
	}

	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimPrefix(strings.TrimSpace(scanner.Text()), "data: ")
			if line == "" {
				continue
			}

			var chunk chatChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				send(ctx, ch, llm.NewErrorEvent(httperr.Malformed(err)))
				return
			}
			if chunk.Error != "" {
				send(ctx, ch, llm.NewErrorEvent(httperr.New(httperr.KindServerError, 0, chunk.Error)))
				return
			}
			if chunk.Message.Content != "" && !send(ctx, ch, llm.NewDeltaEvent(chunk.Message.Content)) {
				return
			}
			if chunk.Done {
				send(ctx, ch, llm.NewDoneEvent(finishReason(chunk.DoneReason)))
				return
			}
		}

		if err := scanner.Err(); err != nil {
			send(ctx, ch, llm.NewErrorEvent(providerr.Convert(err)))
			return
		}
		// the server closed the stream without a final chunk
		send(ctx, ch, llm.NewErrorEvent(httperr.FromTransport(fmt.Errorf("ollama stream ended early: %w", io.ErrUnexpectedEOF))))
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

func finishReason(r string) string {
	if r == llm.FinishReasonLength {
		return llm.FinishReasonLength
	}
	return llm.FinishReasonStop
}

func (c *Client) convertRequest(req llm.ChatRequest) chatRequest {
	model := req.Model
	if model == "" {
		model = c.model
	}

	out := chatRequest{
		Model:    model,
		Messages: make([]chatMessage, 0, len(req.Messages)),
		Stream:   true,
	}
	for _, msg := range req.Messages {
		role := msg.Role
		if role == "" {
			role = llm.RoleUser
		}
		out.Messages = append(out.Messages, chatMessage{Role: string(role), Content: msg.Content})
	}
	if req.Temperature != nil || req.TopP != nil || req.MaxTokens != nil {
		out.Options = &chatOptions{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
		}
	}
	return out
}

// ListModels returns the names of the models pulled on the server.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	resp, err := c.http.Fetch(ctx, "/api/tags")
	if err != nil {
		return nil, providerr.Convert(err)
	}

	doc, _ := resp.(map[string]any)
	entries, _ := doc["models"].([]any)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

// ModelInfo returns information about the model
func (c *Client) ModelInfo() llm.ModelInfo {
	maxTokens := defaultContextWindow
	for _, w := range contextWindows {
		if w.pattern.MatchString(c.model) {
			maxTokens = w.maxTokens
			break
		}
	}
	return llm.ModelInfo{
		Name:              c.model,
		Provider:          "ollama",
		MaxTokens:         maxTokens,
		SupportsStreaming: true,
	}
}

// Close cleans up any resources used by the client
func (c *Client) Close() error {
	return nil
}
