package booking

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/session"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotAuthenticated  = errors.New("not authenticated")
)

type BookingUseCase interface {
	BookFlight(ctx context.Context, flight domain.Flight) (*apiclient.PurchaseReceipt, error)
	CancelTicket(ctx context.Context, ticketID int64) error
	MyTickets(ctx context.Context) ([]domain.Ticket, error)
}

type TicketAPI interface {
	BuyTicket(ctx context.Context, flightID int64) (apiclient.PurchaseReceipt, error)
	CancelTicket(ctx context.Context, ticketID int64) error
	MyTickets(ctx context.Context) ([]domain.Ticket, error)
}

type Identity interface {
	Get() session.Session
}

type BookingService struct {
	tickets  TicketAPI
	identity Identity
	notifier notify.Notifier
	logger   logrus.FieldLogger
}

func NewBookingService(tickets TicketAPI, identity Identity, notifier notify.Notifier, logger logrus.FieldLogger) *BookingService {
	return &BookingService{
		tickets:  tickets,
		identity: identity,
		notifier: notifier,
		logger:   logger.WithField("service", "booking"),
	}
}

// BookFlight requests a ticket. The request only starts the purchase; the
// outcome arrives later as purchase_success or purchase_failed. A cached
// balance below the price stops the booking before any request is made.
func (s *BookingService) BookFlight(ctx context.Context, flight domain.Flight) (*apiclient.PurchaseReceipt, error) {
	user := s.identity.Get().User
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	if user.Balance < flight.Price {
		s.notifier.Notify(ctx, notify.Error("Insufficient funds", "You do not have enough funds in your account for this booking."))
		return nil, ErrInsufficientFunds
	}

	receipt, err := s.tickets.BuyTicket(ctx, flight.ID)
	if err != nil {
		s.logger.WithError(err).WithField("flight_id", flight.ID).Warn("purchase request failed")
		s.notifier.Notify(ctx, notify.Error("Error", apiclient.Message(err, "Could not book the flight.")))
		return nil, err
	}

	msg := receipt.Message
	if msg == "" {
		msg = "Your booking is being processed. You will be notified when it completes."
	}
	s.notifier.Notify(ctx, notify.Info("Purchase in progress", msg))
	return &receipt, nil
}

func (s *BookingService) CancelTicket(ctx context.Context, ticketID int64) error {
	if err := s.tickets.CancelTicket(ctx, ticketID); err != nil {
		s.notifier.Notify(ctx, notify.Error("Error", apiclient.Message(err, "Could not cancel the ticket.")))
		return err
	}
	s.notifier.Notify(ctx, notify.Success("Ticket cancelled", "The ticket was cancelled and the amount refunded."))
	return nil
}

func (s *BookingService) MyTickets(ctx context.Context) ([]domain.Ticket, error) {
	return s.tickets.MyTickets(ctx)
}

var _ BookingUseCase = (*BookingService)(nil)
