package session

import (
	"sync"
	"time"
)

// TickerFunc starts a ticker and returns its channel and stop function.
type TickerFunc func(period time.Duration) (<-chan time.Time, func())

func realTicker(period time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(period)
	return t.C, t.Stop
}

// Timer calls onTick once per period while running. It keeps no count of
// its own; the callback decides what a tick means.
type Timer struct {
	period    time.Duration
	newTicker TickerFunc
	onTick    func()

	mu      sync.Mutex
	done    chan struct{}
	stopped chan struct{}
}

func NewTimer(period time.Duration, onTick func(), newTicker TickerFunc) *Timer {
	if newTicker == nil {
		newTicker = realTicker
	}
	return &Timer{period: period, onTick: onTick, newTicker: newTicker}
}

// Start is a no-op when the timer is already running.
func (t *Timer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done != nil {
		return
	}

	ticks, stop := t.newTicker(t.period)
	t.done = make(chan struct{})
	t.stopped = make(chan struct{})
	go t.run(ticks, stop, t.done, t.stopped)
}

func (t *Timer) run(ticks <-chan time.Time, stop func(), done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	defer stop()
	for {
		select {
		case <-done:
			return
		case <-ticks:
			select {
			case <-done:
				return
			default:
			}
			t.onTick()
		}
	}
}

// Stop halts the timer and waits until no tick callback is running.
func (t *Timer) Stop() {
	t.mu.Lock()
	done, stopped := t.done, t.stopped
	t.done, t.stopped = nil, nil
	t.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
}

func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done != nil
}
