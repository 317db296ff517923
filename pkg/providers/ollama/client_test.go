package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(llm.ClientConfig{BaseURL: srv.URL, Model: "llama3.1:8b"})
	require.NoError(t, err)
	return c
}

func collect(ch <-chan llm.StreamEvent) (string, []llm.StreamEvent) {
	var sb strings.Builder
	var events []llm.StreamEvent
	for ev := range ch {
		events = append(events, ev)
		if ev.IsDelta() {
			sb.WriteString(ev.Delta)
		}
	}
	return sb.String(), events
}

func TestStreamChatCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req chatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)
		assert.Equal(t, "llama3.1:8b", req.Model)

		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, word := range []string{"Hello", " there"} {
			fmt.Fprintf(w, `{"message":{"role":"assistant","content":%q},"done":false}`+"\n", word)
		}
		fmt.Fprintln(w, `{"message":{"role":"assistant","content":""},"done":true,"done_reason":"stop"}`)
	})

	ch, err := c.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	text, events := collect(ch)
	assert.Equal(t, "Hello there", text)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.True(t, last.IsDone())
	assert.Equal(t, llm.FinishReasonStop, last.FinishReason)
}

func TestStreamChatCompletion_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":"model not found"}`)
	})

	_, err := c.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	assert.ErrorIs(t, err, httperr.KindNotFound)
}

func TestStreamChatCompletion_BadChunk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"ok"},"done":false}`)
		fmt.Fprintln(w, `{broken`)
	})

	ch, err := c.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	text, events := collect(ch)
	assert.Equal(t, "ok", text)
	last := events[len(events)-1]
	require.True(t, last.IsError())
	assert.ErrorIs(t, last.Err, httperr.KindServerError)
}

func TestStreamChatCompletion_Truncated(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `{"message":{"content":"partial"},"done":false}`)
	})

	ch, err := c.StreamChatCompletion(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.NewUserMessage("hi")},
	})
	require.NoError(t, err)

	_, events := collect(ch)
	last := events[len(events)-1]
	require.True(t, last.IsError())
	assert.ErrorIs(t, last.Err, httperr.KindConnection)
}

func TestListModels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models":[{"name":"llama3.1:8b"},{"name":"qwen2:7b"}]}`)
	})

	names, err := c.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.1:8b", "qwen2:7b"}, names)
}

func TestConvertRequest(t *testing.T) {
	c := &Client{model: "qwen2"}
	tokens := 64
	req := c.convertRequest(llm.ChatRequest{
		MaxTokens: &tokens,
		Messages:  []llm.Message{{Content: "no role"}},
	})
	assert.Equal(t, "qwen2", req.Model)
	assert.Equal(t, "user", req.Messages[0].Role)
	require.NotNil(t, req.Options)
	assert.Equal(t, &tokens, req.Options.NumPredict)

	assert.Nil(t, c.convertRequest(llm.ChatRequest{}).Options)
	assert.Equal(t, 32768, c.ModelInfo().MaxTokens)
}
