// Package memory provides the bounded experience store creatures learn from.
package memory

import (
	"iter"

	"github.com/pthm-cable/fitrah/perception"
)

// Experience is one tick of a creature's life: what it saw, what it did and
// the internal state it ended up in.
type Experience struct {
	State  perception.Tensor
	Action int

	// Internal state after the action resolved.
	Energy int
	Age    int
	Alive  bool
}

// Buffer is a bounded FIFO. Adding beyond capacity evicts the oldest entry.
type Buffer struct {
	entries    []Experience
	writeIndex int
	count      int
}

// NewBuffer creates a buffer holding at most capacity experiences.
// Capacities below 1 are raised to 1.
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{entries: make([]Experience, capacity)}
}

// Add appends e, evicting the oldest entry when full.
func (b *Buffer) Add(e Experience) {
	b.entries[b.writeIndex] = e
	b.writeIndex = (b.writeIndex + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
}

// Len returns the number of stored experiences.
func (b *Buffer) Len() int { return b.count }

// Cap returns the capacity.
func (b *Buffer) Cap() int { return len(b.entries) }

// oldest returns the ring index of the oldest entry.
func (b *Buffer) oldest() int {
	if b.count < len(b.entries) {
		return 0
	}
	return b.writeIndex
}

// At returns the i-th experience counting from the oldest.
func (b *Buffer) At(i int) Experience {
	if i < 0 || i >= b.count {
		panic("memory: index out of range")
	}
	return b.entries[(b.oldest()+i)%len(b.entries)]
}

// Slice returns the stored experiences oldest first, in a new slice.
func (b *Buffer) Slice() []Experience {
	out := make([]Experience, b.count)
	start := b.oldest()
	for i := range out {
		out[i] = b.entries[(start+i)%len(b.entries)]
	}
	return out
}

// All iterates the stored experiences oldest first.
func (b *Buffer) All() iter.Seq2[int, Experience] {
	return func(yield func(int, Experience) bool) {
		start := b.oldest()
		for i := 0; i < b.count; i++ {
			if !yield(i, b.entries[(start+i)%len(b.entries)]) {
				return
			}
		}
	}
}

// Latest returns the newest experience.
func (b *Buffer) Latest() (Experience, bool) {
	if b.count == 0 {
		return Experience{}, false
	}
	return b.At(b.count - 1), true
}
