package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/hajimehoshi/go-mp3"

	"github.com/d1nch8g/vocalize/logger"
)

// MP3Source replays an MP3 file through the capture path as if it was
// spoken into the microphone. go-mp3 always decodes to 16-bit stereo.
type MP3Source struct {
	path            string
	framesPerBuffer int
	realtime        bool
	onEnd           func()
	logger          logger.Logger
}

var _ Source = (*MP3Source)(nil)

type MP3Option func(*MP3Source)

// Realtime paces delivery at the playback rate of the file.
func Realtime(enabled bool) MP3Option {
	return func(s *MP3Source) { s.realtime = enabled }
}

// OnEnd is called from its own goroutine once the whole file was delivered.
func OnEnd(fn func()) MP3Option {
	return func(s *MP3Source) { s.onEnd = fn }
}

func NewMP3Source(path string, framesPerBuffer int, log logger.Logger, opts ...MP3Option) *MP3Source {
	s := &MP3Source{
		path:            path,
		framesPerBuffer: framesPerBuffer,
		realtime:        true,
		logger:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MP3Source) Open(ctx context.Context) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}

	format := Format{SampleRate: float64(dec.SampleRate()), Channels: 2, BitsPerSample: 16}
	s.logger.Debugw("opened mp3 source", "path", s.path, "format", format.String(), "bytes", dec.Length())

	return newReaderStream(dec, f, format, s.framesPerBuffer, s.realtime, s.onEnd), nil
}

// readerStream delivers PCM read from r in frames of framesPerBuffer.
type readerStream struct {
	r         io.Reader
	closer    io.Closer
	format    Format
	frameSize int
	realtime  bool
	onEnd     func()

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
	closed  bool
}

func newReaderStream(r io.Reader, closer io.Closer, format Format, framesPerBuffer int, realtime bool, onEnd func()) *readerStream {
	return &readerStream{
		r:         r,
		closer:    closer,
		format:    format,
		frameSize: framesPerBuffer * format.FrameSize(),
		realtime:  realtime,
		onEnd:     onEnd,
	}
}

func (s *readerStream) Format() Format { return s.format }

func (s *readerStream) Start(handler func(frame []byte)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStreamClosed
	}
	if s.done != nil {
		return fmt.Errorf("capture already started")
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.capture(handler, s.done, s.stopped)
	return nil
}

func (s *readerStream) capture(handler func([]byte), done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	var tick <-chan time.Time
	if s.realtime {
		period := time.Duration(float64(s.frameSize/s.format.FrameSize()) / s.format.SampleRate * float64(time.Second))
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if tick != nil {
			select {
			case <-done:
				return
			case <-tick:
			}
		} else {
			select {
			case <-done:
				return
			default:
			}
		}

		frame := make([]byte, s.frameSize)
		n, err := io.ReadFull(s.r, frame)
		if n > 0 {
			handler(frame[:n])
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if s.onEnd != nil {
				go s.onEnd()
			}
			return
		}
		if err != nil {
			return
		}
	}
}

func (s *readerStream) Stop() error {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	<-stopped
	return nil
}

func (s *readerStream) Close() error {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
