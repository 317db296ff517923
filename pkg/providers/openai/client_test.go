package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
)

func sseServer(t *testing.T, deltas ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])

		w.Header().Set("Content-Type", "text/event-stream")
		for _, d := range deltas {
			chunk := map[string]any{
				"id":      "x",
				"object":  "chat.completion.chunk",
				"choices": []any{map[string]any{"index": 0, "delta": map[string]any{"content": d}}},
			}
			b, _ := json.Marshal(chunk)
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
		}
		_, _ = fmt.Fprint(w, `data: {"id":"x","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`+"\n\n")
		_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestStreamChatCompletion(t *testing.T) {
	srv := sseServer(t, "Hel", "lo")
	defer srv.Close()

	c, err := NewClient(llm.ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "gpt-4o-mini"})
	require.NoError(t, err)

	ch, err := c.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	var text string
	var done []string
	for ev := range ch {
		require.False(t, ev.IsError(), "unexpected error: %v", ev.Err)
		if ev.IsDelta() {
			text += ev.Delta
		}
		if ev.IsDone() {
			done = append(done, ev.FinishReason)
		}
	}
	assert.Equal(t, "Hello", text)
	assert.Equal(t, []string{"stop"}, done)
}

func TestStreamChatCompletion_Errors(t *testing.T) {
	tests := []struct {
		status int
		want   httperr.Kind
	}{
		{http.StatusTooManyRequests, httperr.KindTimeout},
		{http.StatusBadRequest, httperr.KindBadRequest},
		{http.StatusUnauthorized, httperr.KindUnauthorized},
		{http.StatusInternalServerError, httperr.KindServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"invalid_request_error","code":"x"}}`))
			}))
			defer srv.Close()

			c, err := NewClient(llm.ClientConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
			require.NoError(t, err)

			_, err = c.StreamChatCompletion(context.Background(), llm.ChatRequest{
				Messages: []llm.Message{llm.NewUserMessage("hi")},
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewClient_RequiresKey(t *testing.T) {
	_, err := NewClient(llm.ClientConfig{})
	assert.ErrorIs(t, err, httperr.KindUnauthorized)
}

func TestConvertRequest(t *testing.T) {
	c, err := NewClient(llm.ClientConfig{APIKey: "k"})
	require.NoError(t, err)

	temp := float32(0.3)
	tokens := 10
	out := c.convertRequest(llm.ChatRequest{
		Messages:    []llm.Message{llm.NewSystemMessage("sys"), llm.NewUserMessage("u")},
		Temperature: &temp,
		MaxTokens:   &tokens,
		User:        "42",
	})

	assert.Equal(t, llm.DefaultOpenAIModel, out.Model)
	assert.True(t, out.Stream)
	assert.Equal(t, "42", out.User)
	assert.Equal(t, float32(0.3), out.Temperature)
	assert.Equal(t, 10, out.MaxTokens)
	require.Len(t, out.Messages, 2)
	assert.Equal(t, "system", out.Messages[0].Role)
}

func TestModelInfo(t *testing.T) {
	c, err := NewClient(llm.ClientConfig{APIKey: "k", Model: "gpt-4o"})
	require.NoError(t, err)
	info := c.ModelInfo()
	assert.Equal(t, "openai", info.Provider)
	assert.Equal(t, 128000, info.MaxTokens)
}
