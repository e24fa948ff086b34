package reducer

import (
	"fmt"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/events"
	"github.com/Domenick1991/airdash/internal/notify"
)

// PurchaseFailedFallback is shown when the server gives no reason.
const PurchaseFailedFallback = "An error occurred while purchasing the ticket."

type Viewer struct {
	UserID int64
}

// Accepts reports whether an event is meant for this viewer. Events without
// a user id are broadcast.
func (v Viewer) Accepts(ev events.Event) bool {
	uid := ev.Metadata().UserID
	return uid == 0 || uid == v.UserID
}

// Outcome describes the side effects a view should perform after a reduce.
type Outcome struct {
	Changed        bool
	Ignored        bool
	RefreshProfile bool
	Notifications  []notify.Message
}

func ignored() Outcome { return Outcome{Ignored: true} }

// ReduceBoard applies ev to the status-routed board. Events in arrival
// order are applied as-is; stale deliveries are the caller's concern (see
// VersionGuard).
func ReduceBoard(b Board, v Viewer, ev events.Event) (Board, Outcome) {
	if !v.Accepts(ev) {
		return b, ignored()
	}

	switch e := ev.(type) {
	case events.FlightApproved:
		next := RemoveFlightFromAll(b, e.Flight.ID)
		next = next.With(domain.BucketUpcoming, Prepend(next.Upcoming, e.Flight))
		return next, Outcome{
			Changed:       true,
			Notifications: []notify.Message{notify.Info("New flight approved", e.Flight.Name)},
		}

	case events.FlightCancelled:
		next := RemoveFlightFromAll(b, e.Flight.ID)
		next = next.With(domain.BucketFinished, Prepend(next.Finished, e.Flight))
		return next, Outcome{
			Changed:       true,
			Notifications: []notify.Message{notify.Warning("Flight cancelled", e.Flight.Name)},
		}

	case events.FlightRejected:
		if b.Count(e.Flight.ID) == 0 {
			return b, Outcome{}
		}
		return RemoveFlightFromAll(b, e.Flight.ID), Outcome{Changed: true}

	case events.FlightStatusChanged:
		flight, ok := statusTarget(b, e)
		if !ok {
			return b, ignored()
		}
		return Route(b, flight), Outcome{Changed: true}

	case events.NewFlightPending:
		list, inserted := InsertIfAbsent(b.Pending, e.Flight)
		return b.With(domain.BucketPending, list), Outcome{
			Changed:       inserted,
			Notifications: []notify.Message{notify.Info("New flight awaiting approval", e.Flight.Name)},
		}

	case events.FlightUpdated, events.TicketPurchased:
		flight := flightOf(ev)
		changed := false
		for _, bk := range domain.BoardBuckets {
			list, ok := ReplaceIfPresent(b.Bucket(bk), flight)
			if ok {
				b = b.With(bk, list)
				changed = true
			}
		}
		return b, Outcome{Changed: changed}

	case events.PurchaseSucceeded, events.PurchaseFailed:
		return b, ReducePersonal(v, ev)
	}
	return b, ignored()
}

// statusTarget returns the flight to route for a status change. A bare
// {flight_id, status} patch re-routes the last known copy.
func statusTarget(b Board, e events.FlightStatusChanged) (domain.Flight, bool) {
	if e.Flight != nil {
		return *e.Flight, true
	}
	known, _, ok := b.Locate(e.FlightID)
	if !ok {
		return domain.Flight{}, false
	}
	known.Status = e.Status
	return known, true
}

func flightOf(ev events.Event) domain.Flight {
	switch e := ev.(type) {
	case events.FlightUpdated:
		return e.Flight
	case events.TicketPurchased:
		return e.Flight
	}
	return domain.Flight{}
}

// ReduceOwned applies ev to a manager's own flight list, which keeps
// rejected flights with their reason.
func ReduceOwned(list []domain.Flight, v Viewer, ev events.Event) ([]domain.Flight, Outcome) {
	if !v.Accepts(ev) {
		return list, ignored()
	}

	switch e := ev.(type) {
	case events.FlightRejected:
		return Upsert(list, e.Flight), Outcome{
			Changed:       true,
			Notifications: []notify.Message{notify.Warning("Flight rejected", e.Flight.Name)},
		}

	case events.FlightApproved:
		return Upsert(list, e.Flight), Outcome{
			Changed:       true,
			Notifications: []notify.Message{notify.Info("Flight approved", e.Flight.Name+" is now approved.")},
		}

	case events.FlightStatusChanged:
		var flight domain.Flight
		if e.Flight != nil {
			flight = *e.Flight
		} else {
			i := indexOf(list, e.FlightID)
			if i < 0 {
				return list, ignored()
			}
			flight = list[i]
			flight.Status = e.Status
		}
		return Upsert(list, flight), Outcome{
			Changed: true,
			Notifications: []notify.Message{notify.Info("Flight status changed",
				fmt.Sprintf("%s is now %s", flight.Name, flight.Status.Label()))},
		}
	}
	return list, ignored()
}

// ReducePersonal handles the viewer's purchase results. Lists are never
// touched: the new ticket shows up on the next load and the balance comes
// from a profile refresh.
func ReducePersonal(v Viewer, ev events.Event) Outcome {
	if !v.Accepts(ev) {
		return ignored()
	}

	switch e := ev.(type) {
	case events.PurchaseSucceeded:
		name := "flight"
		if e.Ticket != nil {
			name = e.Ticket.FlightName(name)
		}
		return Outcome{
			RefreshProfile: true,
			Notifications: []notify.Message{notify.Success("Purchase successful",
				fmt.Sprintf("Ticket for %s purchased successfully.", name))},
		}

	case events.PurchaseFailed:
		reason := e.Reason
		if reason == "" {
			reason = PurchaseFailedFallback
		}
		return Outcome{Notifications: []notify.Message{notify.Error("Purchase failed", reason)}}
	}
	return ignored()
}
