package gemini

import (
	"context"
	"math"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/providers/providerr"
)

// contextWindows maps model patterns to their context size. First match wins.
var contextWindows = []struct {
	pattern   *regexp.Regexp
	maxTokens int
}{
	{regexp.MustCompile(`gemini-1\.5-pro`), 2000000},
	{regexp.MustCompile(`gemini-(1\.5|2\.\d)-flash`), 1000000},
	{regexp.MustCompile(`gemini-.*-vision`), 30720},
}

const defaultContextWindow = 30720

// Client implements llm.Client for the Gemini API
type Client struct {
	model string
	genai *genai.Client
}

// NewClient creates a new Gemini client
func NewClient(config llm.ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, httperr.New(httperr.KindUnauthorized, 0, "API key is required for Gemini")
	}

	genaiConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.Timeout > 0 {
		timeout := config.Timeout
		genaiConfig.HTTPOptions.Timeout = &timeout
	}
	if config.BaseURL != "" {
		genaiConfig.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(context.Background(), genaiConfig)
	if err != nil {
		return nil, httperr.New(httperr.KindGeneric, 0, "creating genai client: "+err.Error())
	}

	return &Client{
		model: config.ModelOr(llm.DefaultGeminiModel),
		genai: client,
	}, nil
}

// StreamChatCompletion performs a streaming chat completion request
func (c *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	system, contents, err := convertMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	history := contents[:len(contents)-1]
	chat, err := c.genai.Chats.Create(ctx, model, generationConfig(req, system), history)
	if err != nil {
		return nil, providerr.Convert(err)
	}

	last := contents[len(contents)-1]
	parts := make([]genai.Part, 0, len(last.Parts))
	for _, p := range last.Parts {
		parts = append(parts, *p)
	}

	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)

		reason := llm.FinishReasonStop
		for resp, err := range chat.SendMessageStream(ctx, parts...) {
			if err != nil {
				send(ctx, ch, llm.NewErrorEvent(providerr.Convert(err)))
				return
			}
			if len(resp.Candidates) == 0 {
				continue
			}
			candidate := resp.Candidates[0]
			if candidate.FinishReason == genai.FinishReasonMaxTokens {
				reason = llm.FinishReasonLength
			}
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Text == "" {
					continue
				}
				if !send(ctx, ch, llm.NewDeltaEvent(part.Text)) {
					return
				}
			}
		}

		send(ctx, ch, llm.NewDoneEvent(reason))
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

// convertMessages splits system messages off into the system instruction and
// converts the rest into genai contents.
func convertMessages(messages []llm.Message) (*genai.Content, []*genai.Content, error) {
	var (
		system   []string
		contents []*genai.Content
	)

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
			continue
		case llm.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	if len(contents) == 0 {
		return nil, nil, httperr.New(httperr.KindBadRequest, 400, "no user or assistant messages provided")
	}

	var instruction *genai.Content
	if len(system) > 0 {
		instruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return instruction, contents, nil
}

func generationConfig(req llm.ChatRequest, system *genai.Content) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = clampInt32(*req.MaxTokens)
	}
	return config
}

func clampInt32(v int) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < 0 {
		return 0
	}
	return int32(v)
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
		Provider:          "gemini",
		MaxTokens:         maxTokens,
		SupportsStreaming: true,
	}
}

// Close is a no-op: the genai client holds no resources.
func (c *Client) Close() error {
	return nil
}
