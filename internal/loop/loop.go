package loop

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const defaultRate = 20

var (
	ErrNoTicker       = errors.New("loop: ticker is required")
	ErrAlreadyStarted = errors.New("loop: start called multiple times")
	ErrNotStarted     = errors.New("loop: not started")
	ErrAlreadyStopped = errors.New("loop: stop called multiple times")
)

// Ticker is advanced once per tick on the loop goroutine.
type Ticker interface {
	Tick(ctx context.Context) error
}

// TickerFunc adapts a function to Ticker.
type TickerFunc func(ctx context.Context) error

func (f TickerFunc) Tick(ctx context.Context) error { return f(ctx) }

// Config controls the behaviour of the tick loop.
type Config struct {
	Ticker Ticker
	// Rate is the number of ticks per second.
	Rate   int
	Logger *slog.Logger
}

// Loop drives a Ticker at a fixed cadence on a single goroutine. A tick that
// returns an error stops the loop; the error is kept for Err.
type Loop struct {
	ticker   Ticker
	interval time.Duration
	logger   *slog.Logger

	started atomic.Bool
	stopped atomic.Bool
	ticks   atomic.Uint64

	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// New creates a Loop with the supplied configuration.
func New(cfg Config) (*Loop, error) {
	if cfg.Ticker == nil {
		return nil, ErrNoTicker
	}
	rate := cfg.Rate
	if rate <= 0 {
		rate = defaultRate
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		ticker:   cfg.Ticker,
		interval: time.Second / time.Duration(rate),
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the loop. It must be called once.
func (l *Loop) Start(ctx context.Context) error {
	if !l.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	ctx, l.cancel = context.WithCancel(ctx)
	go l.run(ctx)
	return nil
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.DebugContext(ctx, "tick loop stopped", "ticks", l.ticks.Load())
			return
		case <-ticker.C:
			start := time.Now()
			if err := l.ticker.Tick(ctx); err != nil {
				l.setErr(err)
				l.logger.ErrorContext(ctx, "tick failed, stopping loop", "tick", l.ticks.Load(), "err", err)
				return
			}
			l.ticks.Add(1)
			if elapsed := time.Since(start); elapsed > l.interval {
				l.logger.WarnContext(ctx, "can't keep up, tick overran", "elapsed", elapsed, "interval", l.interval)
			}
		}
	}
}

func (l *Loop) setErr(err error) {
	l.mu.Lock()
	l.err = err
	l.mu.Unlock()
}

// Err returns the error that stopped the loop, if any.
func (l *Loop) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Done is closed when the loop goroutine exits.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Ticks reports how many ticks completed successfully.
func (l *Loop) Ticks() uint64 { return l.ticks.Load() }

// Stop cancels the loop and waits for the in-flight tick to finish.
func (l *Loop) Stop(ctx context.Context) error {
	if !l.started.Load() {
		return ErrNotStarted
	}
	if !l.stopped.CompareAndSwap(false, true) {
		return ErrAlreadyStopped
	}
	l.cancel()
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
