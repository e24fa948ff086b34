// Package realtimetest provides an in-memory realtime transport for tests.
package realtimetest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/Domenick1991/airdash/internal/realtime"
)

var ErrDialRefused = errors.New("loopback: dial refused")

// Emitted records one outbound frame.
type Emitted struct {
	Namespace string
	Name      string
	Payload   json.RawMessage
}

// Loopback delivers frames published with Publish to every open stream on
// the same namespace.
type Loopback struct {
	mu       sync.Mutex
	streams  map[string]map[*stream]struct{}
	emitted  []Emitted
	refuse   int
	dials    int
	dialedCh chan string
}

func New() *Loopback {
	return &Loopback{
		streams:  make(map[string]map[*stream]struct{}),
		dialedCh: make(chan string, 64),
	}
}

// RefuseDials makes the next n dials fail.
func (l *Loopback) RefuseDials(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refuse = n
}

// Dialed receives the namespace of every successful dial.
func (l *Loopback) Dialed() <-chan string { return l.dialedCh }

func (l *Loopback) Dials() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dials
}

func (l *Loopback) Dial(ctx context.Context, namespace string) (realtime.Stream, error) {
	l.mu.Lock()
	l.dials++
	if l.refuse > 0 {
		l.refuse--
		l.mu.Unlock()
		return nil, ErrDialRefused
	}
	s := &stream{owner: l, ns: namespace, in: make(chan realtime.Frame, 64), closed: make(chan struct{})}
	if l.streams[namespace] == nil {
		l.streams[namespace] = make(map[*stream]struct{})
	}
	l.streams[namespace][s] = struct{}{}
	l.mu.Unlock()

	select {
	case l.dialedCh <- namespace:
	default:
	}
	return s, nil
}

// Publish sends an event to every stream open on namespace and returns how
// many received it.
func (l *Loopback) Publish(namespace, name string, payload interface{}) int {
	raw, _ := json.Marshal(payload)
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for s := range l.streams[namespace] {
		s.in <- realtime.Frame{Name: name, Payload: raw}
		n++
	}
	return n
}

// Drop closes every stream on namespace from the server side.
func (l *Loopback) Drop(namespace string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for s := range l.streams[namespace] {
		s.closeOnce.Do(func() { close(s.closed) })
		delete(l.streams[namespace], s)
	}
}

// Open reports how many streams are open on namespace.
func (l *Loopback) Open(namespace string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.streams[namespace])
}

func (l *Loopback) Emitted() []Emitted {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Emitted(nil), l.emitted...)
}

type stream struct {
	owner     *Loopback
	ns        string
	in        chan realtime.Frame
	closed    chan struct{}
	closeOnce sync.Once
}

func (s *stream) Recv(ctx context.Context) (realtime.Frame, error) {
	select {
	case <-ctx.Done():
		return realtime.Frame{}, ctx.Err()
	case <-s.closed:
		return realtime.Frame{}, realtime.ErrDisconnected
	case f := <-s.in:
		return f, nil
	}
}

func (s *stream) Emit(_ context.Context, name string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	s.owner.mu.Lock()
	defer s.owner.mu.Unlock()
	s.owner.emitted = append(s.owner.emitted, Emitted{Namespace: s.ns, Name: name, Payload: raw})
	return nil
}

func (s *stream) Close() error {
	s.owner.mu.Lock()
	delete(s.owner.streams[s.ns], s)
	s.owner.mu.Unlock()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}
