package audio

import (
	"bytes"
	"sync"
)

// Buffer accumulates encoded chunks of one recording in arrival order.
type Buffer struct {
	mu     sync.Mutex
	data   bytes.Buffer
	chunks int
}

func NewBuffer() *Buffer {
	return &Buffer{}
}

// Accept appends chunk. Empty chunks are dropped.
func (b *Buffer) Accept(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Write(chunk)
	b.chunks++
}

// Finalize returns the concatenation of every accepted chunk and empties the
// buffer for the next recording.
func (b *Buffer) Finalize() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.data.Len())
	copy(out, b.data.Bytes())
	b.data.Reset()
	b.chunks = 0
	return out
}

func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data.Reset()
	b.chunks = 0
}

// Len is the number of bytes accepted since the last Finalize.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data.Len()
}

// Chunks is the number of chunks accepted since the last Finalize.
func (b *Buffer) Chunks() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.chunks
}
