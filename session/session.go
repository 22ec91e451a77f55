package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/d1nch8g/vocalize/analysis"
	"github.com/d1nch8g/vocalize/audio"
	"github.com/d1nch8g/vocalize/codec"
	"github.com/d1nch8g/vocalize/logger"
	"github.com/d1nch8g/vocalize/metrics"
)

var (
	// ErrBusy is returned by Start when a recording is already active.
	ErrBusy = errors.New("recording session is busy")
	// ErrAcquisition wraps failures to open or start the microphone.
	ErrAcquisition = errors.New("microphone unavailable")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("recording session closed")
)

// State is the externally visible phase of a recording session.
type State int

const (
	Idle State = iota
	Listening
	Processing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Snapshot is a copy of the session as seen from outside.
type Snapshot struct {
	ID             string
	State          State
	ElapsedSeconds int
	Result         *analysis.Result

	version uint64
}

// Registrar provides encoders once codec registration succeeded.
type Registrar interface {
	EnsureReady(ctx context.Context) codec.Readiness
	NewEncoder(format audio.Format) codec.Encoder
}

// Config holds the controller timings.
type Config struct {
	TickPeriod      time.Duration
	AnalysisTimeout time.Duration
}

type Option func(*Controller)

func WithLogger(log logger.Logger) Option {
	return func(c *Controller) { c.logger = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithObserver registers fn to receive a Snapshot after every transition and
// every counted tick. Calls are serialised and arrive in transition order; a
// snapshot already superseded when its turn comes is skipped.
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) { c.observer = fn }
}

// WithTicker replaces the wall-clock ticker that drives the elapsed counter.
func WithTicker(fn TickerFunc) Option {
	return func(c *Controller) { c.newTicker = fn }
}

// Controller is the recording state machine: Idle -> Listening ->
// Processing -> Idle. It owns the microphone stream while Listening and
// releases it on every way out of Listening.
type Controller struct {
	config    Config
	source    audio.Source
	registrar Registrar
	analyzer  analysis.Analyzer
	buffer    *audio.Buffer
	timer     *Timer
	newTicker TickerFunc
	logger    logger.Logger
	metrics   *metrics.Metrics
	observer  func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	emitMu  sync.Mutex
	emitted uint64

	mu        sync.Mutex
	state     State
	starting  bool
	stopping  bool
	closed    bool
	elapsed   int
	stream    audio.Stream
	encoder   codec.Encoder
	result    *analysis.Result
	id        string
	startedAt time.Time
	version   uint64
}

func NewController(
	config Config,
	source audio.Source,
	registrar Registrar,
	analyzer analysis.Analyzer,
	opts ...Option,
) *Controller {
	if config.TickPeriod == 0 {
		config.TickPeriod = time.Second
	}
	if config.AnalysisTimeout == 0 {
		config.AnalysisTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		config:    config,
		source:    source,
		registrar: registrar,
		analyzer:  analyzer,
		buffer:    audio.NewBuffer(),
		logger:    logger.Nop(),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.timer = NewTimer(config.TickPeriod, c.tick, c.newTicker)
	return c
}

// Start acquires the microphone and begins recording. It returns ErrBusy
// unless the session is Idle, and an error wrapping ErrAcquisition when the
// device cannot be opened; in both cases nothing is held afterwards.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state != Idle || c.starting {
		c.mu.Unlock()
		return ErrBusy
	}
	c.starting = true
	c.elapsed = 0
	snap := c.markLocked()
	c.mu.Unlock()
	c.emit(snap)

	id := newSessionID()

	if c.registrar.EnsureReady(ctx) == codec.Degraded {
		c.metrics.ObserveCodecDegraded()
		c.logger.Warnw("recording with raw fallback format", "session", id)
	}

	stream, err := c.source.Open(ctx)
	if err != nil {
		c.abortStart()
		c.metrics.ObserveAcquisitionFailure()
		c.logger.Errorw("failed to acquire microphone", "session", id, "error", err)
		return fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	enc := c.registrar.NewEncoder(stream.Format())
	c.buffer.Reset()
	if err := stream.Start(func(frame []byte) {
		c.buffer.Accept(enc.Encode(frame))
	}); err != nil {
		c.closeStream(id, stream)
		c.abortStart()
		c.metrics.ObserveAcquisitionFailure()
		c.logger.Errorw("failed to start capture", "session", id, "error", err)
		return fmt.Errorf("%w: %w", ErrAcquisition, err)
	}

	c.mu.Lock()
	if c.closed {
		c.starting = false
		c.mu.Unlock()
		c.release(id, stream)
		c.buffer.Reset()
		return ErrClosed
	}
	c.state = Listening
	c.starting = false
	c.stream = stream
	c.encoder = enc
	c.result = nil
	c.id = id
	c.startedAt = time.Now()
	c.timer.Start()
	snap = c.markLocked()
	c.mu.Unlock()

	c.metrics.ObserveStarted()
	c.logger.Infow("recording started", "session", id, "format", stream.Format().String(), "encoding", enc.MimeType())
	c.emit(snap)
	return nil
}

func (c *Controller) abortStart() {
	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()
}

// Stop ends the recording and submits it for analysis. It reports false and
// does nothing unless the session is Listening.
func (c *Controller) Stop() bool {
	c.mu.Lock()
	if c.state != Listening || c.stopping {
		c.mu.Unlock()
		return false
	}
	c.stopping = true
	stream, enc, id, startedAt := c.stream, c.encoder, c.id, c.startedAt
	c.mu.Unlock()

	c.timer.Stop()
	c.release(id, stream)
	c.buffer.Accept(enc.Flush())
	recording := c.buffer.Finalize()

	c.mu.Lock()
	c.state = Processing
	c.stopping = false
	c.stream = nil
	c.encoder = nil
	closed := c.closed
	if !closed {
		c.wg.Add(1)
	}
	snap := c.markLocked()
	c.mu.Unlock()

	c.metrics.ObserveRecording(time.Since(startedAt), len(recording))
	c.logger.Infow("recording stopped",
		"session", id,
		"elapsed_seconds", snap.ElapsedSeconds,
		"bytes", len(recording),
		"encoding", enc.MimeType())
	c.emit(snap)

	if closed {
		c.finish(nil)
		return true
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.config.AnalysisTimeout)
	go func() {
		defer c.wg.Done()
		defer cancel()
		c.analyze(ctx, id, recording)
	}()
	return true
}

// Discard abandons the current recording without analysis and returns the
// session to Idle. It reports false unless the session is Listening.
func (c *Controller) Discard() bool {
	c.mu.Lock()
	if c.state != Listening || c.stopping {
		c.mu.Unlock()
		return false
	}
	c.stopping = true
	stream, id := c.stream, c.id
	c.mu.Unlock()

	c.timer.Stop()
	c.release(id, stream)
	c.buffer.Reset()

	c.mu.Lock()
	c.state = Idle
	c.stopping = false
	c.stream = nil
	c.encoder = nil
	c.elapsed = 0
	snap := c.markLocked()
	c.mu.Unlock()

	c.logger.Infow("recording discarded", "session", id)
	c.emit(snap)
	return true
}

// release halts capture and gives the device back. The stream is closed
// even when stopping it fails.
func (c *Controller) release(id string, stream audio.Stream) {
	if err := stream.Stop(); err != nil {
		c.logger.Warnw("failed to stop capture", "session", id, "error", err)
	}
	c.closeStream(id, stream)
}

func (c *Controller) closeStream(id string, stream audio.Stream) {
	if err := stream.Close(); err != nil {
		c.logger.Warnw("failed to release microphone", "session", id, "error", err)
	}
}

func (c *Controller) analyze(ctx context.Context, id string, recording []byte) {
	started := time.Now()
	result, err := c.analyzer.Submit(ctx, recording)
	took := time.Since(started)

	switch {
	case err != nil && errors.Is(ctx.Err(), context.Canceled):
		c.metrics.ObserveAnalysis("canceled", took)
		c.logger.Warnw("analysis canceled", "session", id, "error", err)
		result = nil
	case err != nil:
		c.metrics.ObserveAnalysis("failure", took)
		c.logger.Errorw("analysis failed", "session", id, "took", took, "error", err)
		result = nil
	case result == nil:
		c.metrics.ObserveAnalysis("failure", took)
		c.logger.Errorw("analysis returned no result", "session", id, "took", took)
	default:
		c.metrics.ObserveAnalysis("success", took)
		c.logger.Infow("analysis complete",
			"session", id,
			"took", took,
			"fluency_score", result.FluencyScore,
			"wpm", result.WordsPerMinute)
	}

	c.finish(result)
}

func (c *Controller) finish(result *analysis.Result) {
	c.mu.Lock()
	c.state = Idle
	c.result = result
	snap := c.markLocked()
	c.mu.Unlock()

	c.emit(snap)
}

func (c *Controller) tick() {
	c.mu.Lock()
	if c.state != Listening || c.stopping {
		c.mu.Unlock()
		return
	}
	c.elapsed++
	snap := c.markLocked()
	c.mu.Unlock()

	c.emit(snap)
}

// Close discards an active recording, cancels a pending analysis and waits
// for background work to finish. The controller cannot be started again.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.Discard()
	c.cancel()
	c.wg.Wait()
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the stored outcome of the last analysis, nil when it failed
// or while a new recording is in progress.
func (c *Controller) Result() *analysis.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Holding reports whether the controller owns a microphone stream.
func (c *Controller) Holding() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             c.id,
		State:          c.state,
		ElapsedSeconds: c.elapsed,
		Result:         c.result,
	}
}

// markLocked versions a snapshot of a transition for emit.
func (c *Controller) markLocked() Snapshot {
	c.version++
	snap := c.snapshotLocked()
	snap.version = c.version
	return snap
}

func (c *Controller) emit(snap Snapshot) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()
	if snap.version <= c.emitted {
		return
	}
	c.emitted = snap.version

	c.metrics.SetState(int(snap.State))
	if c.observer != nil {
		c.observer(snap)
	}
}

func newSessionID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
