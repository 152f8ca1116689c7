// Package worker runs a unit of work in a background loop. Work runs when notified, when the
// max idle ticker fires, and never more often than once per min idle time.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/bsv-blockchain/chainstate/errors"
	"github.com/bsv-blockchain/chainstate/ulogger"
	"github.com/lightningnetwork/lnd/ticker"
	"go.uber.org/atomic"
)

// WorkFunc is one cycle of work. An error is logged and the loop carries on, except for context errors.
type WorkFunc func(ctx context.Context) error

type Options struct {
	MinIdleTime   time.Duration
	MaxIdleTime   time.Duration
	InitialNotify bool
	Ticker        ticker.Ticker
}

type Option func(*Options)

func WithMinIdleTime(d time.Duration) Option {
	return func(o *Options) {
		o.MinIdleTime = d
	}
}

// WithMaxIdleTime wakes the worker at least every d, notified or not. Zero disables the wake.
func WithMaxIdleTime(d time.Duration) Option {
	return func(o *Options) {
		o.MaxIdleTime = d
	}
}

func WithInitialNotify(notify bool) Option {
	return func(o *Options) {
		o.InitialNotify = notify
	}
}

// WithTicker replaces the max idle ticker, for tests.
func WithTicker(t ticker.Ticker) Option {
	return func(o *Options) {
		o.Ticker = t
	}
}

type Worker struct {
	name    string
	logger  ulogger.Logger
	work    WorkFunc
	options Options

	notifyCh chan struct{}
	running  atomic.Bool
	cycles   atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	idleMu sync.Mutex
	idleCh []chan struct{}
}

func New(name string, logger ulogger.Logger, work WorkFunc, opts ...Option) *Worker {
	w := &Worker{
		name:     name,
		logger:   logger,
		work:     work,
		notifyCh: make(chan struct{}, 1),
	}

	for _, opt := range opts {
		opt(&w.options)
	}

	return w
}

func (w *Worker) Name() string {
	return w.name
}

// Start launches the loop. Starting a running worker is an error.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.CompareAndSwap(false, true) {
		return errors.NewStateError("[%s] worker already started", w.name)
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})

	t := w.options.Ticker
	if t == nil && w.options.MaxIdleTime > 0 {
		t = ticker.New(w.options.MaxIdleTime)
	}

	if w.options.InitialNotify {
		w.NotifyWork()
	}

	go w.loop(ctx, t, w.done)

	return nil
}

// Stop cancels the loop and waits for the current cycle to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() {
		return
	}

	w.cancel()
	<-w.done

	w.running.Store(false)
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

// NotifyWork schedules a cycle. Notifications received while a cycle is pending are coalesced.
func (w *Worker) NotifyWork() {
	select {
	case w.notifyCh <- struct{}{}:
	default:
	}
}

// Cycles returns the number of completed cycles.
func (w *Worker) Cycles() uint64 {
	return w.cycles.Load()
}

// WaitForIdle blocks until the worker has no pending notification and is not running a cycle,
// or ctx is done.
func (w *Worker) WaitForIdle(ctx context.Context) error {
	ch := make(chan struct{})

	w.idleMu.Lock()
	w.idleCh = append(w.idleCh, ch)
	w.idleMu.Unlock()

	// wake the loop in case it is already idle
	w.NotifyWork()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return errors.NewContextCanceledError("[%s] waiting for idle", w.name, ctx.Err())
	}
}

func (w *Worker) loop(ctx context.Context, t ticker.Ticker, done chan struct{}) {
	defer close(done)

	var ticks <-chan time.Time

	if t != nil {
		t.Resume()
		defer t.Stop()

		ticks = t.Ticks()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.notifyCh:
		case <-ticks:
		}

		start := time.Now()

		if err := w.work(ctx); err != nil {
			if errors.IsContextError(err) && ctx.Err() != nil {
				return
			}

			w.logger.Errorf("[%s] work failed: %v", w.name, err)
		}

		w.cycles.Inc()

		if len(w.notifyCh) == 0 {
			w.releaseIdle()
		}

		if wait := w.options.MinIdleTime - time.Since(start); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}
}

func (w *Worker) releaseIdle() {
	w.idleMu.Lock()
	defer w.idleMu.Unlock()

	for _, ch := range w.idleCh {
		close(ch)
	}

	w.idleCh = nil
}
