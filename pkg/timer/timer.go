package timer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultInterval = 20 * time.Millisecond

// ErrorHandler is told about each callback that returns an error. The timer
// keeps running afterwards.
type ErrorHandler func(err error)

// Timer calls a function at a fixed interval on its own goroutine until it is
// stopped. Calls never overlap; if one overruns the interval the ticker drops
// the missed ticks.
type Timer struct {
	interval time.Duration
	callback func() error
	onError  ErrorHandler
	log      *zap.SugaredLogger

	lock   sync.Mutex
	cancel context.CancelFunc
	done   sync.WaitGroup
}

type Option func(*Timer)

func WithLogger(log *zap.SugaredLogger) Option {
	return func(t *Timer) {
		t.log = log
	}
}

func WithErrorHandler(h ErrorHandler) Option {
	return func(t *Timer) {
		t.onError = h
	}
}

// New creates a stopped timer. A non-positive interval means DefaultInterval.
func New(interval time.Duration, callback func() error, opts ...Option) *Timer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	t := &Timer{
		interval: interval,
		callback: callback,
		log:      zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(t)
	}
	if t.onError == nil {
		t.onError = func(err error) {
			t.log.Warnw("Timer callback failed, skipping tick", "error", err)
		}
	}
	return t
}

func (t *Timer) Interval() time.Duration {
	return t.interval
}

// Start begins delivering ticks. Calling Start on a running timer does
// nothing.
func (t *Timer) Start() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cancel != nil {
		return
	}

	var ctx context.Context
	ctx, t.cancel = context.WithCancel(context.Background())
	t.done.Add(1)
	go t.loop(ctx)
	t.log.Debugw("Timer started", "interval", t.interval)
}

// Stop prevents further ticks and waits for any tick in progress to finish.
// Calling Stop on a stopped timer does nothing. Stop must not be called from
// the callback.
func (t *Timer) Stop() {
	t.lock.Lock()
	defer t.lock.Unlock()
	if t.cancel == nil {
		return
	}
	t.cancel()
	t.done.Wait()
	t.cancel = nil
	t.log.Debugw("Timer stopped")
}

func (t *Timer) Running() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.cancel != nil
}

func (t *Timer) loop(ctx context.Context) {
	defer t.done.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		// Stop may have raced with the tick.
		if ctx.Err() != nil {
			return
		}
		if err := t.callback(); err != nil {
			t.onError(err)
		}
	}
}
