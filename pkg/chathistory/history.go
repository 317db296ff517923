// Package chathistory keeps a bounded, date ordered message history per chat
// in a store.Store document.
package chathistory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/store"
)

const (
	DefaultLength     = 25
	DefaultCollection = "chat_history"
)

// ErrNotFound is returned by Get for unknown message ids.
var ErrNotFound = errors.New("message not found")

// Entry is one stored message.
type Entry struct {
	MessageID int64     `json:"message_id"`
	Date      time.Time `json:"date"`
	Role      llm.Role  `json:"role"`
	Text      string    `json:"text"`
	From      string    `json:"from,omitempty"`
}

type Option func(*History)

// WithLength bounds the number of entries kept.
func WithLength(n int) Option {
	return func(h *History) {
		if n > 0 {
			h.length = n
		}
	}
}

func WithCollection(name string) Option {
	return func(h *History) { h.collection = name }
}

// History is the history of one chat.
type History struct {
	store      store.Store
	chatID     string
	collection string
	length     int

	mu sync.Mutex
}

func New(s store.Store, chatID string, opts ...Option) *History {
	h := &History{
		store:      s,
		chatID:     chatID,
		collection: DefaultCollection,
		length:     DefaultLength,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// FromUser records a message written by the user.
func (h *History) FromUser(ctx context.Context, id int64, date time.Time, text string) error {
	return h.Add(ctx, Entry{MessageID: id, Date: date, Role: llm.RoleUser, Text: text})
}

// FromAssistant records a message produced by the model.
func (h *History) FromAssistant(ctx context.Context, id int64, date time.Time, text string) error {
	return h.Add(ctx, Entry{MessageID: id, Date: date, Role: llm.RoleAssistant, Text: text})
}

// Add appends e, keeps the newest entries up to the configured length and
// orders them by date.
func (h *History) Add(ctx context.Context, e Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries, err := h.load(ctx)
	if err != nil {
		return err
	}

	entries = append(entries, e)
	if len(entries) > h.length {
		entries = entries[len(entries)-h.length:]
	}
	slices.SortStableFunc(entries, func(a, b Entry) int { return a.Date.Compare(b.Date) })

	return h.save(ctx, entries)
}

// All returns every stored entry.
func (h *History) All(ctx context.Context) ([]Entry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx)
}

// Get returns the entry with the given message id.
func (h *History) Get(ctx context.Context, messageID int64) (Entry, error) {
	entries, err := h.All(ctx)
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.MessageID == messageID {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %d", ErrNotFound, messageID)
}

// Last returns at most n of the newest entries dated after since. A zero
// since keeps everything; n <= 0 means no limit.
func (h *History) Last(ctx context.Context, n int, since time.Time) ([]Entry, error) {
	entries, err := h.All(ctx)
	if err != nil {
		return nil, err
	}
	if !since.IsZero() {
		entries = slices.DeleteFunc(entries, func(e Entry) bool { return !e.Date.After(since) })
	}
	return tail(entries, n), nil
}

// Before returns at most n entries whose message id is lower than
// messageID. n <= 0 means no limit.
func (h *History) Before(ctx context.Context, messageID int64, n int) ([]Entry, error) {
	entries, err := h.All(ctx)
	if err != nil {
		return nil, err
	}
	entries = slices.DeleteFunc(entries, func(e Entry) bool { return e.MessageID >= messageID })
	return tail(entries, n), nil
}

// Clear drops the whole history.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.save(ctx, nil)
}

// Messages converts entries to prompt messages.
func Messages(entries []Entry) []llm.Message {
	out := make([]llm.Message, 0, len(entries))
	for _, e := range entries {
		out = append(out, llm.Message{Role: e.Role, Content: e.Text})
	}
	return out
}

func tail(entries []Entry, n int) []Entry {
	if n > 0 && len(entries) > n {
		return entries[len(entries)-n:]
	}
	return entries
}

func (h *History) load(ctx context.Context) ([]Entry, error) {
	doc, err := h.store.Get(ctx, h.collection, h.chatID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading history of chat %s: %w", h.chatID, err)
	}

	raw, err := json.Marshal(doc["history"])
	if err != nil {
		return nil, err
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decoding history of chat %s: %w", h.chatID, err)
	}
	return entries, nil
}

func (h *History) save(ctx context.Context, entries []Entry) error {
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		return err
	}
	if err := h.store.Merge(ctx, h.collection, h.chatID, store.Document{"history": list}); err != nil {
		return fmt.Errorf("saving history of chat %s: %w", h.chatID, err)
	}
	return nil
}
