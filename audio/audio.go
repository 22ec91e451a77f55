package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrStreamClosed is returned when a released stream is used again.
var ErrStreamClosed = errors.New("audio stream closed")

// Format describes interleaved little-endian PCM produced by a Stream.
type Format struct {
	SampleRate    float64
	Channels      int
	BitsPerSample int
}

// FrameSize is the number of bytes per sample frame across all channels.
func (f Format) FrameSize() int {
	return f.Channels * f.BitsPerSample / 8
}

func (f Format) String() string {
	return fmt.Sprintf("%.0fHz/%dch/%dbit", f.SampleRate, f.Channels, f.BitsPerSample)
}

// Source hands out exclusive capture streams.
type Source interface {
	// Open acquires the input device. The caller owns the returned Stream
	// and must Close it.
	Open(ctx context.Context) (Stream, error)
}

// Stream is an acquired capture device.
type Stream interface {
	Format() Format

	// Start begins delivering PCM frames to handler from a capture
	// goroutine. Each frame is a fresh slice.
	Start(handler func(frame []byte)) error

	// Stop halts delivery. When it returns the handler will not be called
	// again.
	Stop() error

	// Close releases the device. It is safe to call more than once.
	Close() error
}
