package view

import (
	"context"
	"strings"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/reconcile"
	"github.com/Domenick1991/airdash/internal/reducer"
)

// Catalog is the read side of the flight API the views poll.
type Catalog interface {
	reconcile.BucketLister
	ListAirlines(ctx context.Context) ([]domain.Airline, error)
}

type Booker interface {
	BookFlight(ctx context.Context, flight domain.Flight) (*apiclient.PurchaseReceipt, error)
}

// FlightFilter narrows the flights page. Query matches the flight name or
// either airport, case-insensitively.
type FlightFilter struct {
	Query     string `json:"query"`
	AirlineID int64  `json:"airline_id"`
}

func (f FlightFilter) Match(fl domain.Flight) bool {
	if f.AirlineID != 0 && fl.AirlineID != f.AirlineID {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(fl.Name), q) ||
		strings.Contains(strings.ToLower(fl.Origin), q) ||
		strings.Contains(strings.ToLower(fl.Destination), q)
}

func (f FlightFilter) apply(list []domain.Flight) []domain.Flight {
	out := make([]domain.Flight, 0, len(list))
	for _, fl := range list {
		if f.Match(fl) {
			out = append(out, fl)
		}
	}
	return out
}

type FlightsSnapshot struct {
	Status
	Upcoming   []domain.Flight  `json:"upcoming"`
	InProgress []domain.Flight  `json:"in_progress"`
	Finished   []domain.Flight  `json:"finished"`
	Airlines   []domain.Airline `json:"airlines"`
	Filter     FlightFilter     `json:"filter"`
}

var flightsBuckets = []domain.Bucket{domain.BucketUpcoming, domain.BucketInProgress, domain.BucketFinished}

// FlightsView is the public flights board on /flights.
type FlightsView struct {
	base
	catalog Catalog
	booker  Booker
	viewer  reducer.Viewer

	board    reducer.Board
	airlines []domain.Airline
	filter   FlightFilter
}

func NewFlightsView(catalog Catalog, booker Booker, viewer reducer.Viewer, opts Options) *FlightsView {
	v := &FlightsView{catalog: catalog, booker: booker, viewer: viewer}
	v.init("flights", opts)
	return v
}

func (v *FlightsView) Mount(ctx context.Context) error {
	if err := v.live(ctx, events.NamespaceFlights, v.viewer.UserID, v.handle, v.refresh); err != nil {
		return err
	}
	v.beginLoad()
	err := v.refresh(ctx)
	airlines, airErr := v.catalog.ListAirlines(ctx)
	if airErr != nil {
		v.logger.WithError(airErr).Warn("failed to load airlines")
	}

	v.mu.Lock()
	if airErr == nil {
		v.airlines = airlines
	}
	v.endLoad(err)
	v.mu.Unlock()
	v.changed()
	return nil
}

// refresh replaces every bucket that came back. Failed buckets keep their
// last contents.
func (v *FlightsView) refresh(ctx context.Context) error {
	snap, err := reconcile.FetchBuckets(ctx, v.catalog, flightsBuckets...)

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	for bk, list := range snap {
		v.board = v.board.With(bk, list)
	}
	v.mu.Unlock()
	if len(snap) > 0 {
		v.changed()
	}
	return err
}

func (v *FlightsView) handle(ev events.Event) {
	v.mu.Lock()
	if !v.admit(ev) {
		v.mu.Unlock()
		return
	}
	next, out := reducer.ReduceBoard(v.board, v.viewer, ev)
	// The public board has no pending bucket and never polls one.
	next.Pending = nil
	v.board = next
	v.mu.Unlock()
	v.settle(ev, out)
}

func (v *FlightsView) SetFilter(f FlightFilter) {
	v.mu.Lock()
	v.filter = f
	v.mu.Unlock()
	v.changed()
}

// Board returns the unfiltered buckets.
func (v *FlightsView) Board() reducer.Board {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.board
}

func (v *FlightsView) Snapshot() FlightsSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return FlightsSnapshot{
		Status:     v.status,
		Upcoming:   v.filter.apply(v.board.Upcoming),
		InProgress: v.filter.apply(v.board.InProgress),
		Finished:   v.filter.apply(v.board.Finished),
		Airlines:   append([]domain.Airline{}, v.airlines...),
		Filter:     v.filter,
	}
}

// Book buys a ticket for a flight currently on the board.
func (v *FlightsView) Book(ctx context.Context, flightID int64) (*apiclient.PurchaseReceipt, error) {
	v.mu.Lock()
	flight, _, ok := v.board.Locate(flightID)
	v.mu.Unlock()
	if !ok {
		return nil, ErrFlightNotFound
	}
	return v.booker.BookFlight(ctx, flight)
}
