// Package realtime manages the per-view connections to the event channel.
//
// A Connection belongs to exactly one view. It dials the namespace, joins
// the viewer's room, decodes frames into typed events and dispatches them
// from a single goroutine in delivery order. Close tears everything down
// and returns only once no handler can run again.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/events"
)

var ErrClosed = errors.New("connection closed")

// Frame is one named message received on a namespace.
type Frame struct {
	Name    string
	Payload json.RawMessage
}

// Stream is a live, dialed connection to one namespace.
type Stream interface {
	Recv(ctx context.Context) (Frame, error)
	Emit(ctx context.Context, name string, payload interface{}) error
	Close() error
}

type Transport interface {
	Dial(ctx context.Context, namespace string) (Stream, error)
}

// Observer is told about traffic; used for metrics.
type Observer interface {
	FrameReceived(namespace, name string)
	FrameRejected(namespace, name string)
	Reconnecting(namespace string)
}

type State string

const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateIdle       State = "idle"
	StateClosed     State = "closed"
)

type Handler func(events.Event)

type options struct {
	maxReconnects int
	backoffMin    time.Duration
	backoffMax    time.Duration
	logger        logrus.FieldLogger
	observer      Observer
}

type Option func(*options)

// WithReconnect enables automatic reconnection, at most max attempts in a
// row. Zero keeps the connection passive.
func WithReconnect(max int) Option {
	return func(o *options) { o.maxReconnects = max }
}

func WithBackoff(min, max time.Duration) Option {
	return func(o *options) {
		o.backoffMin = min
		o.backoffMax = max
	}
}

func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) { o.logger = logger }
}

func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}

type Connection struct {
	transport Transport
	namespace string
	viewerID  int64
	opts      options
	logger    logrus.FieldLogger

	mu       sync.Mutex
	handlers map[events.Kind]map[int]Handler
	nextID   int
	stream   Stream
	state    State

	cancel context.CancelFunc
	done   chan struct{}
}

// Open starts connecting to namespace in the background and returns
// immediately. viewerID is announced with join_room on every connect.
func Open(ctx context.Context, transport Transport, namespace string, viewerID int64, opts ...Option) *Connection {
	o := options{
		backoffMin: 500 * time.Millisecond,
		backoffMax: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Connection{
		transport: transport,
		namespace: namespace,
		viewerID:  viewerID,
		opts:      o,
		logger:    o.logger.WithField("namespace", namespace),
		handlers:  make(map[events.Kind]map[int]Handler),
		state:     StateConnecting,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

func (c *Connection) Namespace() string { return c.namespace }

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// On subscribes h to events of kind. The returned func removes it.
func (c *Connection) On(kind events.Kind, h Handler) (off func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return func() {}
	}
	if c.handlers[kind] == nil {
		c.handlers[kind] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[kind][id] = h
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.handlers[kind], id)
	}
}

// Close disconnects, drops every subscription and waits for the dispatch
// goroutine to exit. It must not be called from inside a handler.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		<-c.done
		return nil
	}
	c.state = StateClosed
	c.handlers = make(map[events.Kind]map[int]Handler)
	stream := c.stream
	c.mu.Unlock()

	c.cancel()
	var err error
	if stream != nil {
		err = stream.Close()
	}
	<-c.done
	return err
}

// Done is closed once the connection has stopped for good.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) run(ctx context.Context) {
	defer close(c.done)

	attempt := 0
	for {
		stream, err := c.transport.Dial(ctx, c.namespace)
		if err == nil {
			attempt = 0
			if !c.attach(stream) {
				_ = stream.Close()
				return
			}
			c.join(ctx, stream)
			err = c.readLoop(ctx, stream)
			c.detach()
			_ = stream.Close()
		}
		if ctx.Err() != nil {
			return
		}

		if attempt >= c.opts.maxReconnects {
			c.logger.WithError(err).Warn("realtime connection lost, relying on polling")
			c.setState(StateIdle)
			return
		}
		attempt++
		delay := backoff(attempt, c.opts.backoffMin, c.opts.backoffMax)
		c.logger.WithError(err).WithFields(logrus.Fields{"attempt": attempt, "delay": delay}).Info("reconnecting")
		if c.opts.observer != nil {
			c.opts.observer.Reconnecting(c.namespace)
		}
		c.setState(StateConnecting)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (c *Connection) attach(stream Stream) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateClosed {
		return false
	}
	c.stream = stream
	c.state = StateConnected
	return true
}

func (c *Connection) detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stream = nil
	if c.state != StateClosed {
		c.state = StateConnecting
	}
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateClosed {
		c.state = s
	}
}

type joinRoom struct {
	UserID int64 `json:"user_id"`
}

func (c *Connection) join(ctx context.Context, stream Stream) {
	if c.viewerID == 0 {
		return
	}
	if err := stream.Emit(ctx, events.JoinRoom, joinRoom{UserID: c.viewerID}); err != nil {
		c.logger.WithError(err).Warn("join_room failed")
	}
}

func (c *Connection) readLoop(ctx context.Context, stream Stream) error {
	for {
		frame, err := stream.Recv(ctx)
		if err != nil {
			return err
		}
		c.dispatch(ctx, frame)
	}
}

func (c *Connection) dispatch(ctx context.Context, frame Frame) {
	if c.opts.observer != nil {
		c.opts.observer.FrameReceived(c.namespace, frame.Name)
	}

	ev, err := events.Decode(frame.Name, frame.Payload)
	if err != nil {
		if c.opts.observer != nil {
			c.opts.observer.FrameRejected(c.namespace, frame.Name)
		}
		c.logger.WithError(err).WithField("event", frame.Name).Warn("dropping realtime frame")
		return
	}

	c.mu.Lock()
	subs := make([]Handler, 0, len(c.handlers[ev.Kind()]))
	for _, h := range c.handlers[ev.Kind()] {
		subs = append(subs, h)
	}
	c.mu.Unlock()

	for _, h := range subs {
		if ctx.Err() != nil {
			return
		}
		h(ev)
	}
}

func backoff(attempt int, min, max time.Duration) time.Duration {
	d := min
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
