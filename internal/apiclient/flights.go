package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Domenick1991/airdash/internal/domain"
)

var bucketPaths = map[domain.Bucket]string{
	domain.BucketPending:    "/flights/pending",
	domain.BucketUpcoming:   "/flights/upcoming",
	domain.BucketInProgress: "/flights/in-progress",
	domain.BucketFinished:   "/flights/finished",
	domain.BucketMine:       "/flights/my",
}

// ListFlights returns the server's authoritative snapshot of one bucket.
func (c *Client) ListFlights(ctx context.Context, bucket domain.Bucket) ([]domain.Flight, error) {
	path, ok := bucketPaths[bucket]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	env, err := c.flight(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.Flight](env.Data)
}

func (c *Client) AllFlights(ctx context.Context) ([]domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodGet, "/flights/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.Flight](env.Data)
}

func (c *Client) GetFlight(ctx context.Context, id int64) (domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodGet, idPath("/flights", id, ""), nil, nil)
	if err != nil {
		return domain.Flight{}, err
	}
	return decode[domain.Flight](env.Data)
}

func (c *Client) CreateFlight(ctx context.Context, in domain.FlightInput) (domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodPost, "/flights/", nil, in)
	if err != nil {
		return domain.Flight{}, err
	}
	return decode[domain.Flight](env.Data)
}

func (c *Client) UpdateFlight(ctx context.Context, id int64, in domain.FlightInput) (domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodPut, idPath("/flights", id, ""), nil, in)
	if err != nil {
		return domain.Flight{}, err
	}
	return decode[domain.Flight](env.Data)
}

func (c *Client) ApproveFlight(ctx context.Context, id int64) (domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodPost, idPath("/flights", id, "/approve"), nil, nil)
	if err != nil {
		return domain.Flight{}, err
	}
	return decode[domain.Flight](env.Data)
}

type rejectRequest struct {
	Reason string `json:"razlog"`
}

func (c *Client) RejectFlight(ctx context.Context, id int64, reason string) (domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodPost, idPath("/flights", id, "/reject"), nil, rejectRequest{Reason: reason})
	if err != nil {
		return domain.Flight{}, err
	}
	return decode[domain.Flight](env.Data)
}

func (c *Client) CancelFlight(ctx context.Context, id int64) (domain.Flight, error) {
	env, err := c.flight(ctx, http.MethodPost, idPath("/flights", id, "/cancel"), nil, nil)
	if err != nil {
		return domain.Flight{}, err
	}
	return decode[domain.Flight](env.Data)
}

func (c *Client) DeleteFlight(ctx context.Context, id int64) error {
	_, err := c.flight(ctx, http.MethodDelete, idPath("/flights", id, ""), nil, nil)
	return err
}

func (c *Client) SearchFlights(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error) {
	query := url.Values{}
	if q.Name != "" {
		query.Set("naziv", q.Name)
	}
	if q.AirlineID != 0 {
		query.Set("airline_id", strconv.FormatInt(q.AirlineID, 10))
	}
	env, err := c.flight(ctx, http.MethodGet, "/flights/search", query, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.Flight](env.Data)
}

type reportRequest struct {
	Type domain.ReportType `json:"report_type"`
}

// GenerateReport asks the flight API to build and mail a report. It returns
// the server's acknowledgement message.
func (c *Client) GenerateReport(ctx context.Context, rt domain.ReportType) (string, error) {
	env, err := c.flight(ctx, http.MethodPost, "/flights/report", nil, reportRequest{Type: rt})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) ListAirlines(ctx context.Context) ([]domain.Airline, error) {
	env, err := c.flight(ctx, http.MethodGet, "/airlines/", nil, nil)
	if err != nil {
		return nil, err
	}
	return decode[[]domain.Airline](env.Data)
}

func (c *Client) GetAirline(ctx context.Context, id int64) (domain.Airline, error) {
	env, err := c.flight(ctx, http.MethodGet, idPath("/airlines", id, ""), nil, nil)
	if err != nil {
		return domain.Airline{}, err
	}
	return decode[domain.Airline](env.Data)
}

func (c *Client) CreateAirline(ctx context.Context, a domain.Airline) (domain.Airline, error) {
	env, err := c.flight(ctx, http.MethodPost, "/airlines/", nil, a)
	if err != nil {
		return domain.Airline{}, err
	}
	return decode[domain.Airline](env.Data)
}

func (c *Client) UpdateAirline(ctx context.Context, id int64, a domain.Airline) (domain.Airline, error) {
	env, err := c.flight(ctx, http.MethodPut, idPath("/airlines", id, ""), nil, a)
	if err != nil {
		return domain.Airline{}, err
	}
	return decode[domain.Airline](env.Data)
}

func (c *Client) DeleteAirline(ctx context.Context, id int64) error {
	_, err := c.flight(ctx, http.MethodDelete, idPath("/airlines", id, ""), nil, nil)
	return err
}
