package session

import (
	"fmt"
	"sync"

	"github.com/weihan0529/global-meeting-scribe/pkg/audio"
)

// CadenceBuffer accumulates audio chunks between drains of one cadence.
// Append never blocks on pipeline work; Drain atomically hands the
// accumulated audio to the pipeline and resets the buffer.
//
// All methods are safe for concurrent use.
type CadenceBuffer struct {
	mu      sync.Mutex
	chunks  []audio.Chunk
	seconds float64
}

// NewCadenceBuffer creates an empty buffer.
func NewCadenceBuffer() *CadenceBuffer {
	return &CadenceBuffer{}
}

// Append adds a chunk to the buffer. Empty chunks are ignored.
func (b *CadenceBuffer) Append(c audio.Chunk) {
	if c.Empty() {
		return
	}
	b.mu.Lock()
	b.chunks = append(b.chunks, c)
	b.seconds += c.Seconds()
	b.mu.Unlock()
}

// Drain returns the concatenation of everything appended since the last
// drain, in arrival order, and resets the buffer. When nothing was
// appended it returns an empty chunk; callers must check Chunk.Empty and
// skip inference on an empty drain.
func (b *CadenceBuffer) Drain() (audio.Chunk, error) {
	b.mu.Lock()
	chunks := b.chunks
	b.chunks = nil
	b.seconds = 0
	b.mu.Unlock()

	if len(chunks) == 0 {
		return audio.Chunk{}, nil
	}
	out, err := audio.Concat(chunks)
	if err != nil {
		return audio.Chunk{}, fmt.Errorf("session: drain buffer: %w", err)
	}
	return out, nil
}

// Seconds reports the duration of audio currently buffered.
func (b *CadenceBuffer) Seconds() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seconds
}
