// Package reconcile runs the silent fallback poller that re-fetches
// authoritative snapshots to repair drift from missed realtime events.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RefreshFunc fetches and applies one snapshot. It is called without any
// lock held and may run concurrently with a previous, slower call.
type RefreshFunc func(ctx context.Context) error

// Scheduler calls a RefreshFunc on a fixed period. A tick never waits for
// the previous tick's refresh; out-of-order completion is left to the
// refresh's own last-write-wins semantics.
type Scheduler struct {
	interval time.Duration
	refresh  RefreshFunc
	logger   logrus.FieldLogger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup
}

func NewScheduler(interval time.Duration, refresh RefreshFunc, logger logrus.FieldLogger) *Scheduler {
	return &Scheduler{interval: interval, refresh: refresh, logger: logger}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.wg.Add(1)
				go func() {
					defer s.wg.Done()
					s.Tick(ctx)
				}()
			}
		}
	}()
}

// Tick runs one refresh in the caller's goroutine.
func (s *Scheduler) Tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.refresh(ctx); err != nil && ctx.Err() == nil {
		s.logger.WithError(err).Debug("reconcile tick failed")
	}
}

// Stop cancels in-flight refreshes and waits for them to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
