// Package view holds the per-page state containers of the dashboard.
//
// A realtime view has two writers. Its connection's dispatch goroutine
// applies targeted patches through the reducer, and its reconciliation
// scheduler replaces whole buckets with server snapshots. Both write under
// the view's mutex with no ordering between them: a snapshot always wins
// over whatever patches came before it, and a patch applies to whatever
// snapshot is current. After Unmount neither writer can change state.
package view

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/realtime"
	"github.com/Domenick1991/airdash/internal/reconcile"
	"github.com/Domenick1991/airdash/internal/reducer"
)

var (
	ErrUnmounted      = errors.New("view is unmounted")
	ErrFlightNotFound = errors.New("flight not found in view")
	ErrUserNotFound   = errors.New("user not found in view")
)

// View is a page that can be mounted once and unmounted once.
type View interface {
	Name() string
	Mount(ctx context.Context) error
	Unmount()
	Watch() (<-chan struct{}, func())
}

// Recorder receives view level metrics.
type Recorder interface {
	realtime.Observer
	EventIgnored(view, event string)
	ReconcileDone(view string, took time.Duration, err error)
}

type Options struct {
	Transport     realtime.Transport
	Notifier      notify.Notifier
	Recorder      Recorder
	Logger        logrus.FieldLogger
	PollInterval  time.Duration
	MaxReconnects int
	DiscardStale  bool
}

// Status is the load state shown next to a view's data. Polling never
// touches it.
type Status struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

type base struct {
	name   string
	opts   Options
	logger logrus.FieldLogger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	mounted bool
	closed  bool
	guard   *reducer.VersionGuard
	conn    *realtime.Connection
	sched   *reconcile.Scheduler
	status  Status

	watchMu   sync.Mutex
	watchers  map[int]chan struct{}
	nextWatch int
}

func (b *base) init(name string, opts Options) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Notifier == nil {
		opts.Notifier = discardNotifier{}
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	b.name = name
	b.opts = opts
	b.logger = opts.Logger.WithField("view", name)
	b.watchers = make(map[int]chan struct{})
	if opts.DiscardStale {
		b.guard = reducer.NewVersionGuard()
	}
}

func (b *base) Name() string { return b.name }

// live marks the view mounted and starts its connection and poller. An
// empty namespace or nil refresh skips the respective part.
func (b *base) live(ctx context.Context, namespace string, viewerID int64, handle realtime.Handler, refresh reconcile.RefreshFunc) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrUnmounted
	}
	if b.mounted {
		return nil
	}
	b.mounted = true
	b.ctx, b.cancel = context.WithCancel(ctx)

	if namespace != "" && b.opts.Transport != nil {
		b.conn = realtime.Open(b.ctx, b.opts.Transport, namespace, viewerID,
			realtime.WithReconnect(b.opts.MaxReconnects),
			realtime.WithLogger(b.opts.Logger),
			realtime.WithObserver(b.opts.Recorder),
		)
		for _, kind := range events.Vocabulary(namespace) {
			b.conn.On(kind, handle)
		}
	}
	if refresh != nil {
		b.sched = reconcile.NewScheduler(b.opts.PollInterval, b.timed(refresh), b.logger)
		b.sched.Start(b.ctx)
	}
	b.logger.WithField("namespace", namespace).Debug("view mounted")
	return nil
}

// Unmount stops the poller, closes the connection and drops every later
// update. It blocks until neither writer can run again.
func (b *base) Unmount() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	sched, conn, cancel := b.sched, b.conn, b.cancel
	b.mu.Unlock()

	// Handlers run on the connection's dispatch goroutine with b.ctx; it
	// must be canceled before conn.Close waits for that goroutine.
	if cancel != nil {
		cancel()
	}
	if sched != nil {
		sched.Stop()
	}
	if conn != nil {
		if err := conn.Close(); err != nil {
			b.logger.WithError(err).Debug("closing connection")
		}
	}

	b.watchMu.Lock()
	for id, ch := range b.watchers {
		close(ch)
		delete(b.watchers, id)
	}
	b.watchMu.Unlock()
	b.logger.Debug("view unmounted")
}

// Closed reports whether the view was unmounted.
func (b *base) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Watch returns a channel that receives a tick after every state change.
// Ticks coalesce. The channel is closed on unmount.
func (b *base) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.watchMu.Lock()
	defer b.watchMu.Unlock()
	if b.Closed() {
		close(ch)
		return ch, func() {}
	}
	id := b.nextWatch
	b.nextWatch++
	b.watchers[id] = ch
	return ch, func() {
		b.watchMu.Lock()
		defer b.watchMu.Unlock()
		if _, ok := b.watchers[id]; ok {
			delete(b.watchers, id)
			close(ch)
		}
	}
}

func (b *base) changed() {
	b.watchMu.Lock()
	defer b.watchMu.Unlock()
	for _, ch := range b.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// admit must be called with mu held.
func (b *base) admit(ev events.Event) bool {
	if b.closed {
		return false
	}
	if !b.guard.Admit(ev) {
		b.logger.WithField("event", ev.Kind()).Debug("discarding stale event")
		return false
	}
	return true
}

// settle performs the side effects of a reduce. Called without mu.
func (b *base) settle(ev events.Event, out reducer.Outcome) {
	if out.Ignored {
		b.opts.Recorder.EventIgnored(b.name, string(ev.Kind()))
	}
	for _, msg := range out.Notifications {
		b.opts.Notifier.Notify(b.notifyContext(), msg)
	}
	if out.Changed {
		b.changed()
	}
}

func (b *base) notifyContext() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctx == nil {
		return context.Background()
	}
	return b.ctx
}

func (b *base) timed(refresh reconcile.RefreshFunc) reconcile.RefreshFunc {
	return func(ctx context.Context) error {
		start := time.Now()
		err := refresh(ctx)
		if ctx.Err() == nil {
			b.opts.Recorder.ReconcileDone(b.name, time.Since(start), err)
		}
		return err
	}
}

// beginLoad flips the visible loading flag for a user-initiated load.
func (b *base) beginLoad() {
	b.mu.Lock()
	b.status.Loading = true
	b.mu.Unlock()
	b.changed()
}

// endLoad must be called with mu held.
func (b *base) endLoad(err error) {
	b.status.Loading = false
	b.status.Error = ""
	if err != nil {
		b.status.Error = err.Error()
		b.logger.WithError(err).Warn("load failed")
	}
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, notify.Message) {}

type nopRecorder struct{}

func (nopRecorder) FrameReceived(string, string)               {}
func (nopRecorder) FrameRejected(string, string)               {}
func (nopRecorder) Reconnecting(string)                        {}
func (nopRecorder) EventIgnored(string, string)                {}
func (nopRecorder) ReconcileDone(string, time.Duration, error) {}
