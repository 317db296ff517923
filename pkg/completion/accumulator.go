package completion

import (
	"strings"
	"unicode/utf8"
)

// DefaultChunkLength is the number of characters accumulated past the last
// emitted chunk before a new one is flushed.
const DefaultChunkLength = 128

// Accumulator coalesces text deltas into chunks. Every chunk is the full
// text received so far; a chunk is flushed when a delta holds a newline or
// when more than chunkLength characters arrived since the previous chunk.
type Accumulator struct {
	chunkLength int
	text        strings.Builder
	size        int
	yielded     string
	yieldedSize int
}

func NewAccumulator(chunkLength int) *Accumulator {
	if chunkLength <= 0 {
		chunkLength = DefaultChunkLength
	}
	return &Accumulator{chunkLength: chunkLength}
}

// Add appends delta and returns the chunk to emit, if any.
func (a *Accumulator) Add(delta string) (string, bool) {
	a.text.WriteString(delta)
	a.size += utf8.RuneCountInString(delta)

	if strings.Contains(delta, "\n") || a.size-a.yieldedSize > a.chunkLength {
		a.yielded = a.text.String()
		a.yieldedSize = a.size
		return a.yielded, true
	}
	return "", false
}

// Finish returns the final chunk when text arrived after the last flush.
func (a *Accumulator) Finish() (string, bool) {
	final := a.text.String()
	if final == a.yielded {
		return "", false
	}
	a.yielded = final
	a.yieldedSize = a.size
	return final, true
}

// Text returns everything received so far.
func (a *Accumulator) Text() string {
	return a.text.String()
}

// Yielded returns the last emitted chunk.
func (a *Accumulator) Yielded() string {
	return a.yielded
}
