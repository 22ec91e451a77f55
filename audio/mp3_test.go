package audio

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d1nch8g/vocalize/logger"
)

var monoPCM = Format{SampleRate: 16000, Channels: 1, BitsPerSample: 16}

type frameCollector struct {
	mu     sync.Mutex
	frames [][]byte
}

func (c *frameCollector) handle(frame []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = append(c.frames, frame)
}

func (c *frameCollector) joined() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return bytes.Join(c.frames, nil)
}

func TestReaderStreamDeliversWholeInput(t *testing.T) {
	pcm := make([]byte, 10*2*4+6)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	ended := make(chan struct{})
	stream := newReaderStream(bytes.NewReader(pcm), nil, monoPCM, 4, false, func() { close(ended) })

	var got frameCollector
	require.NoError(t, stream.Start(got.handle))

	select {
	case <-ended:
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not reach end of input")
	}
	require.NoError(t, stream.Stop())
	require.NoError(t, stream.Close())

	assert.Equal(t, pcm, got.joined())
	assert.Len(t, got.frames, 11)
}

func TestReaderStreamStopHaltsDelivery(t *testing.T) {
	stream := newReaderStream(bytes.NewReader(make([]byte, 1<<20)), nil, monoPCM, 160, true, nil)

	var got frameCollector
	require.NoError(t, stream.Start(got.handle))
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, stream.Stop())

	delivered := len(got.joined())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, delivered, len(got.joined()), "no frames after Stop returns")
}

func TestReaderStreamRejectsUseAfterClose(t *testing.T) {
	stream := newReaderStream(bytes.NewReader(nil), nil, monoPCM, 4, false, nil)
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())
	assert.ErrorIs(t, stream.Start(func([]byte) {}), ErrStreamClosed)
}

func TestMP3SourceMissingFile(t *testing.T) {
	src := NewMP3Source(filepath.Join(t.TempDir(), "missing.mp3"), 1024, logger.Nop())
	_, err := src.Open(context.Background())
	assert.Error(t, err)
}

func TestMP3SourceRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noise.mp3")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an mp3 stream"), 0o600))

	src := NewMP3Source(path, 1024, logger.Nop(), Realtime(false))
	_, err := src.Open(context.Background())
	assert.Error(t, err)
}

func TestMP3SourceHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewMP3Source("unused.mp3", 1024, logger.Nop()).Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatFrameSize(t *testing.T) {
	assert.Equal(t, 2, monoPCM.FrameSize())
	assert.Equal(t, 4, Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}.FrameSize())
	assert.Equal(t, "16000Hz/1ch/16bit", monoPCM.String())
}
