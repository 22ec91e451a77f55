package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/d1nch8g/vocalize/logger"
)

type Config struct {
	SampleRate      float64
	FramesPerBuffer int
	InputChannels   int
}

// PortAudioSource opens the default input device through PortAudio.
// Initialize must be called once before Open, Terminate at process exit.
type PortAudioSource struct {
	config Config
	logger logger.Logger
}

var _ Source = (*PortAudioSource)(nil)

func NewPortAudioSource(config Config, log logger.Logger) *PortAudioSource {
	return &PortAudioSource{config: config, logger: log}
}

func (s *PortAudioSource) Initialize() error {
	return portaudio.Initialize()
}

func (s *PortAudioSource) Terminate() {
	portaudio.Terminate()
}

func (s *PortAudioSource) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buffer := make([]int32, s.config.FramesPerBuffer*s.config.InputChannels)
	stream, err := portaudio.OpenDefaultStream(
		s.config.InputChannels,
		0,
		s.config.SampleRate,
		s.config.FramesPerBuffer,
		buffer,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open input device: %w", err)
	}

	return &portAudioStream{
		stream: stream,
		buffer: buffer,
		logger: s.logger,
		format: Format{
			SampleRate:    s.config.SampleRate,
			Channels:      s.config.InputChannels,
			BitsPerSample: 16,
		},
	}, nil
}

type portAudioStream struct {
	stream *portaudio.Stream
	buffer []int32
	format Format
	logger logger.Logger

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
	closed  bool
}

func (p *portAudioStream) Format() Format { return p.format }

func (p *portAudioStream) Start(handler func(frame []byte)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrStreamClosed
	}
	if p.done != nil {
		return fmt.Errorf("capture already started")
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	p.done = make(chan struct{})
	p.stopped = make(chan struct{})
	go p.capture(handler, p.done, p.stopped)
	return nil
}

func (p *portAudioStream) capture(handler func([]byte), done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case <-done:
			return
		default:
		}

		if err := p.stream.Read(); err != nil {
			p.logger.Warnw("error reading audio", "error", err)
			continue
		}
		handler(p.convertToBytes())
	}
}

func (p *portAudioStream) Stop() error {
	p.mu.Lock()
	done, stopped := p.done, p.stopped
	p.done, p.stopped = nil, nil
	p.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	<-stopped
	return p.stream.Stop()
}

func (p *portAudioStream) Close() error {
	if err := p.Stop(); err != nil {
		p.logger.Warnw("error stopping capture before close", "error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.stream.Close()
}

// convertToBytes narrows the 32-bit samples to 16-bit little-endian PCM.
func (p *portAudioStream) convertToBytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(p.buffer) * 2)
	for _, sample := range p.buffer {
		binary.Write(&buf, binary.LittleEndian, int16(sample>>16))
	}
	return buf.Bytes()
}
