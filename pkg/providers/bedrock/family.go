package bedrock

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/inercia/go-baski/pkg/llm"
)

const defaultMaxTokens = 1000

// family knows the wire format of one group of Bedrock models.
type family struct {
	name      string
	prefixes  []string
	maxTokens int
	encode    func(req llm.ChatRequest) ([]byte, error)
	decode    func(chunk []byte) (text, reason string, err error)
}

var families = []family{
	{name: "claude", prefixes: []string{"anthropic.", "claude"}, maxTokens: 200000, encode: encodeClaude, decode: decodeClaude},
	{name: "titan", prefixes: []string{"amazon.", "titan"}, maxTokens: 8000, encode: encodeTitan, decode: decodeTitan},
	{name: "llama", prefixes: []string{"meta.", "llama"}, maxTokens: 4096, encode: encodeLlama, decode: decodeLlama},
}

// familyFor returns the family of model. Unknown models use the Claude format.
func familyFor(model string) family {
	m := strings.ToLower(model)
	// cross region inference profiles are prefixed with a geography, e.g. "us."
	if i := strings.Index(m, "."); i == 2 {
		m = m[i+1:]
	}
	for _, f := range families {
		for _, p := range f.prefixes {
			if strings.HasPrefix(m, p) {
				return f
			}
		}
	}
	return families[0]
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	AnthropicVersion string          `json:"anthropic_version"`
	MaxTokens        int             `json:"max_tokens"`
	System           string          `json:"system,omitempty"`
	Messages         []claudeMessage `json:"messages"`
	Temperature      *float32        `json:"temperature,omitempty"`
	TopP             *float32        `json:"top_p,omitempty"`
}

func encodeClaude(req llm.ChatRequest) ([]byte, error) {
	out := claudeRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        maxTokensOr(req, defaultMaxTokens),
		Temperature:      req.Temperature,
		TopP:             req.TopP,
	}

	var system []string
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		role := "user"
		if msg.Role == llm.RoleAssistant {
			role = "assistant"
		}
		out.Messages = append(out.Messages, claudeMessage{Role: role, Content: msg.Content})
	}
	out.System = strings.Join(system, "\n")

	return json.Marshal(out)
}

func decodeClaude(chunk []byte) (string, string, error) {
	var ev struct {
		Type  string `json:"type"`
		Delta struct {
			Text       string `json:"text"`
			StopReason string `json:"stop_reason"`
		} `json:"delta"`
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(chunk, &ev); err != nil {
		return "", "", err
	}

	switch ev.Delta.StopReason {
	case "":
	case "max_tokens":
		return ev.Delta.Text, llm.FinishReasonLength, nil
	default:
		return ev.Delta.Text, llm.FinishReasonStop, nil
	}
	if ev.Completion != "" {
		return ev.Completion, "", nil
	}
	return ev.Delta.Text, "", nil
}

func encodeTitan(req llm.ChatRequest) ([]byte, error) {
	var prompt strings.Builder
	for _, msg := range req.Messages {
		switch msg.Role {
		case llm.RoleSystem:
			prompt.WriteString(msg.Content + "\n\n")
		case llm.RoleAssistant:
			fmt.Fprintf(&prompt, "Bot: %s\n", msg.Content)
		default:
			fmt.Fprintf(&prompt, "User: %s\n", msg.Content)
		}
	}

	config := map[string]any{"maxTokenCount": maxTokensOr(req, defaultMaxTokens)}
	if req.Temperature != nil {
		config["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		config["topP"] = *req.TopP
	}

	return json.Marshal(map[string]any{
		"inputText":            prompt.String(),
		"textGenerationConfig": config,
	})
}

func decodeTitan(chunk []byte) (string, string, error) {
	var ev struct {
		OutputText       string `json:"outputText"`
		CompletionReason string `json:"completionReason"`
	}
	if err := json.Unmarshal(chunk, &ev); err != nil {
		return "", "", err
	}
	switch ev.CompletionReason {
	case "":
		return ev.OutputText, "", nil
	case "LENGTH":
		return ev.OutputText, llm.FinishReasonLength, nil
	default:
		return ev.OutputText, llm.FinishReasonStop, nil
	}
}

func encodeLlama(req llm.ChatRequest) ([]byte, error) {
	var prompt strings.Builder
	prompt.WriteString("<|begin_of_text|>")
	for _, msg := range req.Messages {
		role := string(msg.Role)
		if role == "" {
			role = string(llm.RoleUser)
		}
		fmt.Fprintf(&prompt, "<|start_header_id|>%s<|end_header_id|>\n\n%s<|eot_id|>", role, msg.Content)
	}
	prompt.WriteString("<|start_header_id|>assistant<|end_header_id|>\n\n")

	body := map[string]any{
		"prompt":      prompt.String(),
		"max_gen_len": maxTokensOr(req, defaultMaxTokens),
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if req.TopP != nil {
		body["top_p"] = *req.TopP
	}
	return json.Marshal(body)
}

func decodeLlama(chunk []byte) (string, string, error) {
	var ev struct {
		Generation string `json:"generation"`
		StopReason string `json:"stop_reason"`
	}
	if err := json.Unmarshal(chunk, &ev); err != nil {
		return "", "", err
	}
	switch ev.StopReason {
	case "":
		return ev.Generation, "", nil
	case "length":
		return ev.Generation, llm.FinishReasonLength, nil
	default:
		return ev.Generation, llm.FinishReasonStop, nil
	}
}

func maxTokensOr(req llm.ChatRequest, def int) int {
	if req.MaxTokens != nil {
		return *req.MaxTokens
	}
	return def
}
