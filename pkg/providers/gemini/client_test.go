package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
)

func TestConvertMessages(t *testing.T) {
	system, contents, err := convertMessages([]llm.Message{
		llm.NewSystemMessage("be terse"),
		llm.NewUserMessage("hi"),
		llm.NewAssistantMessage("hello"),
		llm.NewUserMessage("again"),
	})
	require.NoError(t, err)

	require.NotNil(t, system)
	assert.Equal(t, "be terse", system.Parts[0].Text)

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "again", contents[2].Parts[0].Text)
}

func TestConvertMessages_OnlySystem(t *testing.T) {
	_, _, err := convertMessages([]llm.Message{llm.NewSystemMessage("alone")})
	assert.ErrorIs(t, err, httperr.KindBadRequest)
}

func TestGenerationConfig(t *testing.T) {
	temp := float32(0.2)
	tokens := 1 << 40
	config := generationConfig(llm.ChatRequest{Temperature: &temp, MaxTokens: &tokens}, nil)
	assert.Equal(t, &temp, config.Temperature)
	assert.Equal(t, int32(1<<31-1), config.MaxOutputTokens)
}

func TestModelInfo(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gemini-1.5-pro-latest", 2000000},
		{"gemini-1.5-flash", 1000000},
		{"gemini-pro-vision", 30720},
		{"something-else", defaultContextWindow},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			c := &Client{model: tt.model}
			info := c.ModelInfo()
			assert.Equal(t, tt.want, info.MaxTokens)
			assert.Equal(t, "gemini", info.Provider)
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(llm.ClientConfig{})
	assert.ErrorIs(t, err, httperr.KindUnauthorized)
}
