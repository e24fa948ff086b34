// Package events turns raw realtime frames into typed events. Payloads are
// validated here so reducers only ever see well-formed variants.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Domenick1991/airdash/internal/domain"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid event payload")
)

type Kind string

const (
	KindFlightApproved      Kind = "flight_approved"
	KindFlightRejected      Kind = "flight_rejected"
	KindFlightCancelled     Kind = "flight_cancelled"
	KindFlightStatusChanged Kind = "flight_status_changed"
	KindPurchaseSucceeded   Kind = "purchase_success"
	KindPurchaseFailed      Kind = "purchase_failed"
	KindNewFlightPending    Kind = "new_flight_pending"
	KindFlightUpdated       Kind = "flight_updated"
	KindTicketPurchased     Kind = "ticket_purchased"
)

// Namespaces of the realtime channel.
const (
	NamespaceUser    = "/user"
	NamespaceFlights = "/flights"
	NamespaceManager = "/manager"
	NamespaceAdmin   = "/admin"
)

// JoinRoom is the only event the client emits.
const JoinRoom = "join_room"

var vocabulary = map[string][]Kind{
	NamespaceUser:    {KindPurchaseSucceeded, KindPurchaseFailed},
	NamespaceFlights: {KindFlightApproved, KindFlightCancelled, KindFlightStatusChanged, KindTicketPurchased},
	NamespaceManager: {KindFlightRejected, KindFlightApproved, KindFlightStatusChanged},
	NamespaceAdmin:   {KindNewFlightPending, KindFlightUpdated},
}

// Vocabulary lists the events a namespace delivers.
func Vocabulary(namespace string) []Kind {
	return vocabulary[namespace]
}

// Meta is carried by every event. Zero values mean "not sent".
type Meta struct {
	UserID  int64
	Version int64
}

func (m Meta) Metadata() Meta { return m }

type Event interface {
	Kind() Kind
	Metadata() Meta
}

type FlightApproved struct {
	Meta
	Flight domain.Flight
}

type FlightRejected struct {
	Meta
	Flight domain.Flight
}

type FlightCancelled struct {
	Meta
	Flight domain.Flight
}

// FlightStatusChanged carries either a full flight or just its id and the
// new status. Flight is nil in the second case.
type FlightStatusChanged struct {
	Meta
	Flight   *domain.Flight
	FlightID int64
	Status   domain.FlightStatus
}

type PurchaseSucceeded struct {
	Meta
	Ticket *domain.Ticket
}

type PurchaseFailed struct {
	Meta
	Reason string
}

type NewFlightPending struct {
	Meta
	Flight domain.Flight
}

type FlightUpdated struct {
	Meta
	Flight domain.Flight
}

type TicketPurchased struct {
	Meta
	Flight domain.Flight
}

func (FlightApproved) Kind() Kind      { return KindFlightApproved }
func (FlightRejected) Kind() Kind      { return KindFlightRejected }
func (FlightCancelled) Kind() Kind     { return KindFlightCancelled }
func (FlightStatusChanged) Kind() Kind { return KindFlightStatusChanged }
func (PurchaseSucceeded) Kind() Kind   { return KindPurchaseSucceeded }
func (PurchaseFailed) Kind() Kind      { return KindPurchaseFailed }
func (NewFlightPending) Kind() Kind    { return KindNewFlightPending }
func (FlightUpdated) Kind() Kind       { return KindFlightUpdated }
func (TicketPurchased) Kind() Kind     { return KindTicketPurchased }

type payload struct {
	Flight   *domain.Flight      `json:"flight"`
	Ticket   *domain.Ticket      `json:"ticket"`
	UserID   int64               `json:"user_id"`
	Reason   string              `json:"reason"`
	FlightID int64               `json:"flight_id"`
	Status   domain.FlightStatus `json:"status"`
	Version  int64               `json:"version"`
}

// Decode validates a raw frame and returns its typed event.
func Decode(name string, raw []byte) (Event, error) {
	kind := Kind(name)
	switch kind {
	case KindFlightApproved, KindFlightRejected, KindFlightCancelled, KindFlightStatusChanged,
		KindPurchaseSucceeded, KindPurchaseFailed, KindNewFlightPending, KindFlightUpdated, KindTicketPurchased:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	var p payload
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, name, err)
		}
	}
	meta := Meta{UserID: p.UserID, Version: p.Version}

	switch kind {
	case KindPurchaseSucceeded:
		return PurchaseSucceeded{Meta: meta, Ticket: p.Ticket}, nil
	case KindPurchaseFailed:
		return PurchaseFailed{Meta: meta, Reason: p.Reason}, nil
	case KindFlightStatusChanged:
		return decodeStatusChanged(meta, p)
	}

	if p.Flight == nil || p.Flight.ID == 0 {
		return nil, fmt.Errorf("%w: %s without flight", ErrInvalidPayload, name)
	}
	flight := *p.Flight
	if meta.Version == 0 {
		meta.Version = flightVersion(flight)
	}

	switch kind {
	case KindFlightApproved:
		return FlightApproved{Meta: meta, Flight: flight}, nil
	case KindFlightRejected:
		return FlightRejected{Meta: meta, Flight: flight}, nil
	case KindFlightCancelled:
		return FlightCancelled{Meta: meta, Flight: flight}, nil
	case KindNewFlightPending:
		return NewFlightPending{Meta: meta, Flight: flight}, nil
	case KindFlightUpdated:
		return FlightUpdated{Meta: meta, Flight: flight}, nil
	default:
		return TicketPurchased{Meta: meta, Flight: flight}, nil
	}
}

func decodeStatusChanged(meta Meta, p payload) (Event, error) {
	if p.Flight != nil && p.Flight.ID != 0 {
		if !p.Flight.Status.Valid() {
			return nil, fmt.Errorf("%w: flight_status_changed with status %q", ErrInvalidPayload, p.Flight.Status)
		}
		flight := *p.Flight
		if meta.Version == 0 {
			meta.Version = flightVersion(flight)
		}
		return FlightStatusChanged{Meta: meta, Flight: &flight, FlightID: flight.ID, Status: flight.Status}, nil
	}
	if p.FlightID == 0 || !p.Status.Valid() {
		return nil, fmt.Errorf("%w: flight_status_changed needs a flight or flight_id and status", ErrInvalidPayload)
	}
	return FlightStatusChanged{Meta: meta, FlightID: p.FlightID, Status: p.Status}, nil
}

func flightVersion(f domain.Flight) int64 {
	if f.UpdatedAt.IsZero() {
		return 0
	}
	return f.UpdatedAt.UnixNano()
}

// FlightID returns the id of the flight an event is about, or 0.
func FlightID(ev Event) int64 {
	switch e := ev.(type) {
	case FlightApproved:
		return e.Flight.ID
	case FlightRejected:
		return e.Flight.ID
	case FlightCancelled:
		return e.Flight.ID
	case FlightStatusChanged:
		return e.FlightID
	case NewFlightPending:
		return e.Flight.ID
	case FlightUpdated:
		return e.Flight.ID
	case TicketPurchased:
		return e.Flight.ID
	case PurchaseSucceeded:
		if e.Ticket != nil {
			return e.Ticket.FlightID
		}
	}
	return 0
}
