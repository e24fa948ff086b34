// Package notify delivers transient user-facing notifications (toasts).
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Message is what a component wants to tell the user.
type Message struct {
	Level Level  `json:"type"`
	Title string `json:"title"`
	Body  string `json:"message,omitempty"`
}

func Success(title, body string) Message {
	return Message{Level: LevelSuccess, Title: title, Body: body}
}

func Error(title, body string) Message {
	return Message{Level: LevelError, Title: title, Body: body}
}

func Warning(title, body string) Message {
	return Message{Level: LevelWarning, Title: title, Body: body}
}

func Info(title, body string) Message {
	return Message{Level: LevelInfo, Title: title, Body: body}
}

// Notification is a delivered Message.
type Notification struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
	Message
}

type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Sink receives every notification in addition to live subscribers.
type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

const historySize = 50

// Hub stamps messages and fans them out to sinks and subscribers. Slow
// subscribers lose notifications instead of blocking the sender.
type Hub struct {
	mu      sync.Mutex
	subs    map[int]chan Notification
	nextSub int
	history []Notification
	sinks   []Sink
	now     func() time.Time
	logger  logrus.FieldLogger
}

func NewHub(logger logrus.FieldLogger, sinks ...Sink) *Hub {
	return &Hub{
		subs:   make(map[int]chan Notification),
		sinks:  sinks,
		now:    time.Now,
		logger: logger.WithField("component", "notify"),
	}
}

func (h *Hub) Notify(ctx context.Context, msg Message) {
	n := Notification{ID: uuid.NewString(), At: h.now(), Message: msg}

	h.mu.Lock()
	h.history = append(h.history, n)
	if len(h.history) > historySize {
		h.history = h.history[len(h.history)-historySize:]
	}
	for _, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.WithField("title", n.Title).Debug("subscriber full, notification dropped")
		}
	}
	h.mu.Unlock()

	for _, sink := range h.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			h.logger.WithError(err).Warn("notification sink failed")
		}
	}
}

// Subscribe returns a channel of future notifications and a cancel func
// that closes it.
func (h *Hub) Subscribe(buffer int) (<-chan Notification, func()) {
	ch := make(chan Notification, buffer)
	h.mu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Recent returns up to n of the latest notifications, newest first.
func (h *Hub) Recent(n int) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 || n > len(h.history) {
		n = len(h.history)
	}
	out := make([]Notification, 0, n)
	for i := len(h.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, h.history[i])
	}
	return out
}

var _ Notifier = (*Hub)(nil)
