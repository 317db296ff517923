// Package llm provides abstractions for Large Language Model clients
// streaming.go defines types for streaming chat completions

package llm

const (
	EventTypeDelta = "delta"
	EventTypeDone  = "done"
	EventTypeError = "error"

	FinishReasonStop   = "stop"
	FinishReasonLength = "length"
)

// StreamEvent represents a single event in the streaming response
type StreamEvent struct {
	Type         string `json:"type"` // "delta", "done", "error"
	Delta        string `json:"delta,omitempty"`
	FinishReason string `json:"finish_reason,omitempty"`
	Err          error  `json:"-"`
}

// IsDelta returns true if this is a delta event
func (e StreamEvent) IsDelta() bool {
	return e.Type == EventTypeDelta
}

// IsDone returns true if this is a done event
func (e StreamEvent) IsDone() bool {
	return e.Type == EventTypeDone
}

// IsError returns true if this is an error event
func (e StreamEvent) IsError() bool {
	return e.Type == EventTypeError && e.Err != nil
}

// NewDeltaEvent creates a new delta stream event
func NewDeltaEvent(text string) StreamEvent {
	return StreamEvent{Type: EventTypeDelta, Delta: text}
}

// NewDoneEvent creates a new done stream event
func NewDoneEvent(finishReason string) StreamEvent {
	return StreamEvent{Type: EventTypeDone, FinishReason: finishReason}
}

// NewErrorEvent creates a new error stream event
func NewErrorEvent(err error) StreamEvent {
	return StreamEvent{Type: EventTypeError, Err: err}
}
