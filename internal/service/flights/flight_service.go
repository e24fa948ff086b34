package flights

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
)

// MinRejectReason is the shortest rejection reason the dashboard accepts.
const MinRejectReason = 10

var ErrReasonTooShort = errors.New("rejection reason must be at least 10 characters")

type FlightUseCase interface {
	List(ctx context.Context, bucket domain.Bucket) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	Search(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error)
	Airlines(ctx context.Context) ([]domain.Airline, error)
	Create(ctx context.Context, in domain.FlightInput) (*domain.Flight, error)
	Update(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error)
	Approve(ctx context.Context, id int64) (*domain.Flight, error)
	Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error)
	Cancel(ctx context.Context, id int64) (*domain.Flight, error)
	Delete(ctx context.Context, id int64) error
	GenerateReport(ctx context.Context, rt domain.ReportType) error
}

type FlightAPI interface {
	ListFlights(ctx context.Context, bucket domain.Bucket) ([]domain.Flight, error)
	GetFlight(ctx context.Context, id int64) (domain.Flight, error)
	SearchFlights(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error)
	ListAirlines(ctx context.Context) ([]domain.Airline, error)
	CreateFlight(ctx context.Context, in domain.FlightInput) (domain.Flight, error)
	UpdateFlight(ctx context.Context, id int64, in domain.FlightInput) (domain.Flight, error)
	ApproveFlight(ctx context.Context, id int64) (domain.Flight, error)
	RejectFlight(ctx context.Context, id int64, reason string) (domain.Flight, error)
	CancelFlight(ctx context.Context, id int64) (domain.Flight, error)
	DeleteFlight(ctx context.Context, id int64) error
	GenerateReport(ctx context.Context, rt domain.ReportType) (string, error)
}

type FlightService struct {
	api      FlightAPI
	notifier notify.Notifier
	now      func() time.Time
	logger   logrus.FieldLogger
}

func NewFlightService(api FlightAPI, notifier notify.Notifier, logger logrus.FieldLogger) *FlightService {
	return &FlightService{api: api, notifier: notifier, now: time.Now, logger: logger.WithField("service", "flights")}
}

func (s *FlightService) List(ctx context.Context, bucket domain.Bucket) ([]domain.Flight, error) {
	return s.api.ListFlights(ctx, bucket)
}

func (s *FlightService) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := s.api.GetFlight(ctx, id)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (s *FlightService) Search(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error) {
	return s.api.SearchFlights(ctx, q)
}

func (s *FlightService) Airlines(ctx context.Context) ([]domain.Airline, error) {
	return s.api.ListAirlines(ctx)
}

// Validate checks a flight form. It runs before any request is made.
func (s *FlightService) Validate(in domain.FlightInput) error {
	var v apiclient.ValidationError
	if strings.TrimSpace(in.Name) == "" {
		v.Add("naziv", "name is required")
	}
	if in.AirlineID == 0 {
		v.Add("airline_id", "airline is required")
	}
	if in.DistanceKm <= 0 {
		v.Add("duzina_km", "enter a valid distance")
	}
	if in.DurationMinutes <= 0 {
		v.Add("trajanje_minuta", "enter a valid duration")
	}
	if in.DepartureTime.IsZero() {
		v.Add("vreme_polaska", "departure time is required")
	} else if !in.DepartureTime.After(s.now()) {
		v.Add("vreme_polaska", "departure must be in the future")
	}
	origin := strings.TrimSpace(in.Origin)
	destination := strings.TrimSpace(in.Destination)
	if origin == "" {
		v.Add("aerodrom_polaska", "departure airport is required")
	}
	if destination == "" {
		v.Add("aerodrom_dolaska", "arrival airport is required")
	} else if strings.EqualFold(origin, destination) {
		v.Add("aerodrom_dolaska", "departure and arrival airports must differ")
	}
	if in.Price <= 0 {
		v.Add("cena_karte", "enter a valid price")
	}
	if in.TotalSeats <= 0 {
		v.Add("ukupno_mesta", "enter a valid number of seats")
	}
	return v.Err()
}

func (s *FlightService) Create(ctx context.Context, in domain.FlightInput) (*domain.Flight, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	f, err := s.api.CreateFlight(ctx, in)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not create the flight.")
	}
	s.notifier.Notify(ctx, notify.Success("Flight created", f.Name+" was sent for approval."))
	return &f, nil
}

func (s *FlightService) Update(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error) {
	if err := s.Validate(in); err != nil {
		return nil, err
	}
	f, err := s.api.UpdateFlight(ctx, id, in)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not update the flight.")
	}
	s.notifier.Notify(ctx, notify.Success("Flight updated", "The flight was sent for approval again."))
	return &f, nil
}

func (s *FlightService) Approve(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := s.api.ApproveFlight(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not approve the flight.")
	}
	s.notifier.Notify(ctx, notify.Success("Flight approved", f.Name))
	return &f, nil
}

func (s *FlightService) Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) < MinRejectReason {
		s.notifier.Notify(ctx, notify.Warning("Reason too short", "The reason must be at least 10 characters long."))
		return nil, ErrReasonTooShort
	}
	f, err := s.api.RejectFlight(ctx, id, reason)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not reject the flight.")
	}
	s.notifier.Notify(ctx, notify.Success("Flight rejected", f.Name))
	return &f, nil
}

func (s *FlightService) Cancel(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := s.api.CancelFlight(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, err, "Could not cancel the flight.")
	}
	s.notifier.Notify(ctx, notify.Success("Flight cancelled", f.Name))
	return &f, nil
}

func (s *FlightService) Delete(ctx context.Context, id int64) error {
	if err := s.api.DeleteFlight(ctx, id); err != nil {
		return s.fail(ctx, err, "Could not delete the flight.")
	}
	s.notifier.Notify(ctx, notify.Success("Flight deleted", ""))
	return nil
}

func (s *FlightService) GenerateReport(ctx context.Context, rt domain.ReportType) error {
	msg, err := s.api.GenerateReport(ctx, rt)
	if err != nil {
		return s.fail(ctx, err, "Could not generate the report.")
	}
	if msg == "" {
		msg = "The report will be sent to your email."
	}
	s.notifier.Notify(ctx, notify.Success("Report requested", msg))
	return nil
}

func (s *FlightService) fail(ctx context.Context, err error, fallback string) error {
	s.logger.WithError(err).Warn(fallback)
	s.notifier.Notify(ctx, notify.Error("Error", apiclient.Message(err, fallback)))
	return err
}

var _ FlightUseCase = (*FlightService)(nil)
