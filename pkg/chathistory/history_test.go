package chathistory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-baski/pkg/llm"
	"github.com/inercia/go-baski/pkg/store"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(min int) time.Time { return epoch.Add(time.Duration(min) * time.Minute) }

func ids(entries []Entry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.MessageID)
	}
	return out
}

func TestAdd_BoundedAndOrdered(t *testing.T) {
	ctx := context.Background()
	h := New(store.NewMemory(), "chat-1", WithLength(3))

	require.NoError(t, h.FromUser(ctx, 1, at(1), "one"))
	require.NoError(t, h.FromAssistant(ctx, 2, at(2), "two"))
	require.NoError(t, h.FromUser(ctx, 4, at(4), "four"))
	require.NoError(t, h.FromUser(ctx, 3, at(3), "three"))

	all, err := h.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, ids(all))
	assert.Equal(t, llm.RoleAssistant, all[0].Role)
}

func TestLastAndBefore(t *testing.T) {
	ctx := context.Background()
	h := New(store.NewMemory(), "chat-1")
	for i := 1; i <= 5; i++ {
		require.NoError(t, h.FromUser(ctx, int64(i), at(i), "m"))
	}

	last, err := h.Last(ctx, 2, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids(last))

	since, err := h.Last(ctx, 0, at(3))
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 5}, ids(since))

	before, err := h.Before(ctx, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(before))
}

func TestGetAndClear(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	h := New(s, "chat-1")
	require.NoError(t, h.FromUser(ctx, 7, at(0), "hi"))

	e, err := h.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "hi", e.Text)

	_, err = h.Get(ctx, 8)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, h.Clear(ctx))
	all, err := h.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestHistoriesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	a, b := New(s, "a"), New(s, "b")
	require.NoError(t, a.FromUser(ctx, 1, at(0), "for a"))

	got, err := b.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMessages(t *testing.T) {
	msgs := Messages([]Entry{
		{Role: llm.RoleUser, Text: "q"},
		{Role: llm.RoleAssistant, Text: "a"},
	})
	assert.Equal(t, []llm.Message{llm.NewUserMessage("q"), llm.NewAssistantMessage("a")}, msgs)
	assert.NoError(t, llm.ValidateHistory(msgs))
}
