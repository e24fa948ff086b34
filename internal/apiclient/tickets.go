package apiclient

import (
	"context"
	"net/http"

	"github.com/Domenick1991/airdash/internal/domain"
)

func (c *Client) MyTickets(ctx context.Context) ([]domain.Ticket, error) {
	env, err := c.flight(ctx, http.MethodGet, "/tickets/my", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.Ticket](env.Data)
}

// PurchaseReceipt acknowledges a purchase request. The purchase itself
// completes asynchronously and is announced on the /user channel.
type PurchaseReceipt struct {
	Message string
	Ticket  *domain.Ticket
}

type buyRequest struct {
	FlightID int64 `json:"flight_id"`
}

func (c *Client) BuyTicket(ctx context.Context, flightID int64) (PurchaseReceipt, error) {
	env, err := c.flight(ctx, http.MethodPost, "/tickets/buy", nil, buyRequest{FlightID: flightID})
	if err != nil {
		return PurchaseReceipt{}, err
	}
	ticket, err := decode[*domain.Ticket](env.Data)
	if err != nil {
		return PurchaseReceipt{}, err
	}
	return PurchaseReceipt{Message: env.Message, Ticket: ticket}, nil
}

func (c *Client) CancelTicket(ctx context.Context, ticketID int64) error {
	_, err := c.flight(ctx, http.MethodPost, idPath("/tickets", ticketID, "/cancel"), nil, nil)
	return err
}

func (c *Client) ListRatings(ctx context.Context) ([]domain.FlightRating, error) {
	env, err := c.flight(ctx, http.MethodGet, "/ratings/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.FlightRating](env.Data)
}

func (c *Client) RateFlight(ctx context.Context, in domain.RatingInput) (domain.FlightRating, error) {
	env, err := c.flight(ctx, http.MethodPost, "/ratings/", nil, in)
	if err != nil {
		return domain.FlightRating{}, err
	}
	return decode[domain.FlightRating](env.Data)
}
