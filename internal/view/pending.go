package view

import (
	"context"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/reconcile"
	"github.com/Domenick1991/airdash/internal/reducer"
)

type Moderator interface {
	Approve(ctx context.Context, id int64) (*domain.Flight, error)
	Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error)
}

type PendingSnapshot struct {
	Status
	Pending []domain.Flight `json:"pending"`
}

// PendingView is the administrator's approval queue on /admin.
type PendingView struct {
	base
	lister    reconcile.BucketLister
	moderator Moderator
	viewer    reducer.Viewer

	board reducer.Board
}

func NewPendingView(lister reconcile.BucketLister, moderator Moderator, viewer reducer.Viewer, opts Options) *PendingView {
	v := &PendingView{lister: lister, moderator: moderator, viewer: viewer}
	v.init("pending", opts)
	return v
}

func (v *PendingView) Mount(ctx context.Context) error {
	if err := v.live(ctx, events.NamespaceAdmin, v.viewer.UserID, v.handle, v.refresh); err != nil {
		return err
	}
	v.beginLoad()
	err := v.refresh(ctx)
	v.mu.Lock()
	v.endLoad(err)
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *PendingView) refresh(ctx context.Context) error {
	snap, err := reconcile.FetchBuckets(ctx, v.lister, domain.BucketPending)
	pending, ok := snap[domain.BucketPending]
	if !ok {
		return err
	}

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.board = v.board.With(domain.BucketPending, pending)
	v.mu.Unlock()
	v.changed()
	return nil
}

func (v *PendingView) handle(ev events.Event) {
	v.mu.Lock()
	if !v.admit(ev) {
		v.mu.Unlock()
		return
	}
	next, out := reducer.ReduceBoard(v.board, v.viewer, ev)
	v.board = reducer.Board{Pending: next.Pending}
	v.mu.Unlock()
	v.settle(ev, out)
}

func (v *PendingView) Pending() []domain.Flight {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]domain.Flight{}, v.board.Pending...)
}

func (v *PendingView) Snapshot() PendingSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return PendingSnapshot{Status: v.status, Pending: append([]domain.Flight{}, v.board.Pending...)}
}

// Approve approves a pending flight and drops it from the queue.
func (v *PendingView) Approve(ctx context.Context, id int64) (*domain.Flight, error) {
	flight, err := v.moderator.Approve(ctx, id)
	if err != nil {
		return nil, err
	}
	v.drop(id)
	return flight, nil
}

func (v *PendingView) Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error) {
	flight, err := v.moderator.Reject(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	v.drop(id)
	return flight, nil
}

func (v *PendingView) drop(id int64) {
	v.mu.Lock()
	if !v.closed {
		v.board = reducer.RemoveFlightFromAll(v.board, id)
	}
	v.mu.Unlock()
	v.changed()
}
