package openrouter

import (
	"errors"
	"testing"

	"github.com/revrost/go-openrouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
)

func TestConvertError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want httperr.Kind
	}{
		{"rate limited", &openrouter.APIError{HTTPStatusCode: 429, Message: "slow down"}, httperr.KindTimeout},
		{"auth", &openrouter.APIError{HTTPStatusCode: 401, Message: "bad key"}, httperr.KindUnauthorized},
		{"server", &openrouter.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, httperr.KindServerError},
		{"plain", errors.New("weird"), httperr.KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, httperr.KindOf(convertError(tt.err)))
		})
	}
}

func TestConvertRequest(t *testing.T) {
	c, err := NewClient(llm.ClientConfig{APIKey: "k", Extra: map[string]string{"app_name": "baski"}})
	require.NoError(t, err)

	out := c.convertRequest(llm.ChatRequest{Messages: []llm.Message{llm.NewUserMessage("hi")}})
	assert.Equal(t, llm.DefaultOpenRouterModel, out.Model)
	assert.True(t, out.Stream)
	require.Len(t, out.Messages, 1)
	assert.Equal(t, "hi", out.Messages[0].Content.Text)
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(llm.ClientConfig{})
	assert.ErrorIs(t, err, httperr.KindUnauthorized)
}
