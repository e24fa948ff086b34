package view

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/reconcile"
	"github.com/Domenick1991/airdash/internal/session"
)

const summaryTopFlights = 3

type Identity interface {
	Get() session.Session
	Watch() (<-chan struct{}, func())
}

type TicketLister interface {
	MyTickets(ctx context.Context) ([]domain.Ticket, error)
}

type Summary struct {
	Status
	User        *domain.User    `json:"user,omitempty"`
	Balance     float64         `json:"balance"`
	TicketCount int             `json:"ticket_count"`
	NextFlights []domain.Flight `json:"next_flights"`
}

// SummaryView is the landing page: the next few upcoming flights, how many
// tickets the user holds and the cached balance.
type SummaryView struct {
	base
	flights  reconcile.BucketLister
	tickets  TicketLister
	identity Identity

	next        []domain.Flight
	ticketCount int
}

func NewSummaryView(flights reconcile.BucketLister, tickets TicketLister, identity Identity, opts Options) *SummaryView {
	v := &SummaryView{flights: flights, tickets: tickets, identity: identity}
	v.init("dashboard", opts)
	return v
}

func (v *SummaryView) Mount(ctx context.Context) error {
	if err := v.live(ctx, "", 0, nil, nil); err != nil {
		return err
	}
	v.mu.Lock()
	viewCtx := v.ctx
	v.mu.Unlock()
	go v.followIdentity(viewCtx)
	_ = v.Reload(ctx)
	return nil
}

// followIdentity re-renders on profile changes, since the balance is read
// from the session.
func (v *SummaryView) followIdentity(ctx context.Context) {
	ticks, stop := v.identity.Watch()
	defer stop()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			v.changed()
		}
	}
}

func (v *SummaryView) Reload(ctx context.Context) error {
	v.beginLoad()

	var (
		upcoming []domain.Flight
		tickets  []domain.Ticket
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		upcoming, err = v.flights.ListFlights(gctx, domain.BucketUpcoming)
		return err
	})
	g.Go(func() error {
		var err error
		tickets, err = v.tickets.MyTickets(gctx)
		return err
	})
	err := g.Wait()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		if err != nil {
			return err
		}
		return ErrUnmounted
	}
	if err == nil {
		if len(upcoming) > summaryTopFlights {
			upcoming = upcoming[:summaryTopFlights]
		}
		v.next = append([]domain.Flight{}, upcoming...)
		v.ticketCount = len(tickets)
	}
	v.endLoad(err)
	v.mu.Unlock()
	v.changed()
	return err
}

func (v *SummaryView) Snapshot() Summary {
	sess := v.identity.Get()
	v.mu.Lock()
	defer v.mu.Unlock()
	s := Summary{
		Status:      v.status,
		User:        sess.User,
		TicketCount: v.ticketCount,
		NextFlights: append([]domain.Flight{}, v.next...),
	}
	if sess.User != nil {
		s.Balance = sess.User.Balance
	}
	return s
}
