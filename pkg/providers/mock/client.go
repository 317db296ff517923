package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/inercia/go-baski/pkg/llm"
)

type script struct {
	startErr error
	events   []llm.StreamEvent
}

// Client implements the llm.Client interface for testing
type Client struct {
	modelInfo llm.ModelInfo
	latency   time.Duration

	mu      sync.Mutex
	scripts []script
	calls   []llm.ChatRequest
	closed  bool
}

// NewClient creates a new mock LLM client for testing
func NewClient(modelName, provider string) *Client {
	return &Client{
		modelInfo: llm.ModelInfo{
			Name:              modelName,
			Provider:          provider,
			MaxTokens:         4096,
			SupportsStreaming: true,
		},
	}
}

// StreamChatCompletion replays the next scripted stream, or echoes the last
// user message word by word when the script is exhausted.
func (m *Client) StreamChatCompletion(ctx context.Context, req llm.ChatRequest) (<-chan llm.StreamEvent, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	var next *script
	if len(m.scripts) > 0 {
		next = &m.scripts[0]
		m.scripts = m.scripts[1:]
	}
	m.mu.Unlock()

	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if next == nil {
		return m.sendStreamEvents(ctx, CreateWordByWordStream(lastUserMessage(req))), nil
	}
	if next.startErr != nil {
		return nil, next.startErr
	}
	return m.sendStreamEvents(ctx, next.events), nil
}

func (m *Client) sendStreamEvents(ctx context.Context, events []llm.StreamEvent) <-chan llm.StreamEvent {
	ch := make(chan llm.StreamEvent)

	go func() {
		defer close(ch)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case ch <- event:
			}
		}
	}()

	return ch
}

func lastUserMessage(req llm.ChatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == llm.RoleUser {
			return req.Messages[i].Content
		}
	}
	return ""
}

// ModelInfo returns information about the mock model
func (m *Client) ModelInfo() llm.ModelInfo {
	return m.modelInfo
}

// Close marks the client closed
func (m *Client) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Client) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// WithStream queues a stream of raw events.
func (m *Client) WithStream(events ...llm.StreamEvent) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, script{events: events})
	return m
}

// WithDeltas queues a stream of text deltas terminated by a stop event.
func (m *Client) WithDeltas(deltas ...string) *Client {
	events := make([]llm.StreamEvent, 0, len(deltas)+1)
	for _, d := range deltas {
		events = append(events, llm.NewDeltaEvent(d))
	}
	return m.WithStream(append(events, llm.NewDoneEvent(llm.FinishReasonStop))...)
}

// WithStreamError queues a stream that sends deltas and then fails with err.
func (m *Client) WithStreamError(err error, deltas ...string) *Client {
	events := make([]llm.StreamEvent, 0, len(deltas)+1)
	for _, d := range deltas {
		events = append(events, llm.NewDeltaEvent(d))
	}
	return m.WithStream(append(events, llm.NewErrorEvent(err))...)
}

// WithStartError queues a call that fails before streaming starts.
func (m *Client) WithStartError(err error) *Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts = append(m.scripts, script{startErr: err})
	return m
}

// WithLatency delays the start of every stream.
func (m *Client) WithLatency(d time.Duration) *Client {
	m.latency = d
	return m
}

// Calls returns every request received so far.
func (m *Client) Calls() []llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]llm.ChatRequest(nil), m.calls...)
}

// CallCount returns the number of requests received so far.
func (m *Client) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastCall returns the most recent request, if any.
func (m *Client) LastCall() (llm.ChatRequest, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return llm.ChatRequest{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// CreateWordByWordStream splits text into word deltas followed by a stop event.
func CreateWordByWordStream(text string) []llm.StreamEvent {
	words := strings.SplitAfter(text, " ")
	events := make([]llm.StreamEvent, 0, len(words)+1)
	for _, w := range words {
		if w != "" {
			events = append(events, llm.NewDeltaEvent(w))
		}
	}
	return append(events, llm.NewDoneEvent(llm.FinishReasonStop))
}
