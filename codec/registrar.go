package codec

import (
	"context"
	"sync"

	"github.com/d1nch8g/vocalize/audio"
	"github.com/d1nch8g/vocalize/logger"
)

// RegisterFunc performs the one-time setup of an encoder and returns the
// factory for it.
type RegisterFunc func(ctx context.Context) (Factory, error)

// Registrar guards the encoder registration of a process. Registration runs
// until it succeeds once; after that EnsureReady is a flag check.
type Registrar struct {
	mu       sync.Mutex
	loaded   bool
	factory  Factory
	register RegisterFunc
	logger   logger.Logger
}

// Default is the process-wide registrar for the WAV encoder. It lives for the
// whole process and is never torn down.
var Default = NewRegistrar(RegisterWAV, logger.Nop())

// EnsureReady registers the WAV encoder with the Default registrar.
func EnsureReady(ctx context.Context) Readiness {
	return Default.EnsureReady(ctx)
}

func NewRegistrar(register RegisterFunc, log logger.Logger) *Registrar {
	return &Registrar{register: register, logger: log}
}

func (r *Registrar) SetLogger(log logger.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = log
}

// EnsureReady is safe to call any number of times from any goroutine.
// Concurrent callers wait for an in-progress registration. A failure is
// logged and reported as Degraded; the next call tries again.
func (r *Registrar) EnsureReady(ctx context.Context) Readiness {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return Ready
	}

	factory, err := r.register(ctx)
	if err != nil {
		r.logger.Warnw("encoder registration failed, falling back to raw capture", "error", err)
		return Degraded
	}

	r.factory = factory
	r.loaded = true
	r.logger.Debugw("encoder registered")
	return Ready
}

func (r *Registrar) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// NewEncoder returns the registered encoder for format, or the raw PCM
// passthrough when registration has not succeeded.
func (r *Registrar) NewEncoder(format audio.Format) Encoder {
	r.mu.Lock()
	factory, log := r.factory, r.logger
	r.mu.Unlock()

	if factory == nil {
		return NewRawEncoder()
	}
	enc, err := factory(format)
	if err != nil {
		log.Warnw("encoder rejected capture format, using raw capture", "format", format.String(), "error", err)
		return NewRawEncoder()
	}
	return enc
}

// RegisterWAV is the RegisterFunc of the WAV encoder.
func RegisterWAV(ctx context.Context) (Factory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func(format audio.Format) (Encoder, error) {
		return NewWAVEncoder(format)
	}, nil
}
