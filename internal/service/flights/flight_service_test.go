package flights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/logger"
	"github.com/Domenick1991/airdash/internal/notify"
)

type MockFlightAPI struct {
	mock.Mock
}

func (m *MockFlightAPI) ListFlights(ctx context.Context, bucket domain.Bucket) ([]domain.Flight, error) {
	args := m.Called(ctx, bucket)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) GetFlight(ctx context.Context, id int64) (domain.Flight, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) SearchFlights(ctx context.Context, q domain.FlightSearch) ([]domain.Flight, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) ListAirlines(ctx context.Context) ([]domain.Airline, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Airline), args.Error(1)
}

func (m *MockFlightAPI) CreateFlight(ctx context.Context, in domain.FlightInput) (domain.Flight, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) UpdateFlight(ctx context.Context, id int64, in domain.FlightInput) (domain.Flight, error) {
	args := m.Called(ctx, id, in)
	return args.Get(0).(domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) ApproveFlight(ctx context.Context, id int64) (domain.Flight, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) RejectFlight(ctx context.Context, id int64, reason string) (domain.Flight, error) {
	args := m.Called(ctx, id, reason)
	return args.Get(0).(domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) CancelFlight(ctx context.Context, id int64) (domain.Flight, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Flight), args.Error(1)
}

func (m *MockFlightAPI) DeleteFlight(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockFlightAPI) GenerateReport(ctx context.Context, rt domain.ReportType) (string, error) {
	args := m.Called(ctx, rt)
	return args.String(0), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, msg notify.Message) {
	m.Called(ctx, msg)
}

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(api FlightAPI, n notify.Notifier) *FlightService {
	s := NewFlightService(api, n, logger.Discard())
	s.now = func() time.Time { return now }
	return s
}

func validInput() domain.FlightInput {
	return domain.FlightInput{
		Name:            "JU123 Beograd - Pariz",
		AirlineID:       1,
		DistanceKm:      1450,
		DurationMinutes: 150,
		DepartureTime:   domain.NewTimestamp(now.Add(48 * time.Hour)),
		Origin:          "BEG",
		Destination:     "CDG",
		Price:           180,
		TotalSeats:      120,
	}
}

func TestFlightService_Validate(t *testing.T) {
	s := newService(&MockFlightAPI{}, &MockNotifier{})

	testCases := []struct {
		name   string
		mutate func(*domain.FlightInput)
		field  string
	}{
		{"missing name", func(in *domain.FlightInput) { in.Name = "  " }, "naziv"},
		{"missing airline", func(in *domain.FlightInput) { in.AirlineID = 0 }, "airline_id"},
		{"zero distance", func(in *domain.FlightInput) { in.DistanceKm = 0 }, "duzina_km"},
		{"negative duration", func(in *domain.FlightInput) { in.DurationMinutes = -5 }, "trajanje_minuta"},
		{"departure in past", func(in *domain.FlightInput) { in.DepartureTime = domain.NewTimestamp(now.Add(-time.Hour)) }, "vreme_polaska"},
		{"same airports", func(in *domain.FlightInput) { in.Destination = "beg" }, "aerodrom_dolaska"},
		{"free flight", func(in *domain.FlightInput) { in.Price = 0 }, "cena_karte"},
		{"no seats", func(in *domain.FlightInput) { in.TotalSeats = 0 }, "ukupno_mesta"},
	}

	assert.NoError(t, s.Validate(validInput()))
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			err := s.Validate(in)

			var v *apiclient.ValidationError
			require.ErrorAs(t, err, &v)
			assert.Contains(t, v.Fields, tc.field)
		})
	}
}

func TestFlightService_CreateInvalidSkipsAPI(t *testing.T) {
	api := &MockFlightAPI{}
	in := validInput()
	in.Price = -1

	_, err := newService(api, &MockNotifier{}).Create(context.Background(), in)

	assert.Error(t, err)
	api.AssertNotCalled(t, "CreateFlight", mock.Anything, mock.Anything)
}

func TestFlightService_Create(t *testing.T) {
	ctx := context.Background()
	api := &MockFlightAPI{}
	api.On("CreateFlight", ctx, validInput()).Return(domain.Flight{ID: 5, Name: "JU123 Beograd - Pariz", Status: domain.FlightStatusAwaitingApproval}, nil).Once()
	n := &MockNotifier{}
	n.On("Notify", ctx, notify.Success("Flight created", "JU123 Beograd - Pariz was sent for approval.")).Once()

	f, err := newService(api, n).Create(ctx, validInput())

	require.NoError(t, err)
	assert.Equal(t, int64(5), f.ID)
	api.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestFlightService_ApproveFailureUsesServerMessage(t *testing.T) {
	ctx := context.Background()
	api := &MockFlightAPI{}
	api.On("ApproveFlight", ctx, int64(42)).Return(domain.Flight{}, &apiclient.RequestError{Status: 403, Message: "Pristup odbijen"}).Once()
	n := &MockNotifier{}
	n.On("Notify", ctx, notify.Error("Error", "Pristup odbijen")).Once()

	_, err := newService(api, n).Approve(ctx, 42)

	assert.Error(t, err)
	n.AssertExpectations(t)
}

func TestFlightService_ApproveFallbackMessage(t *testing.T) {
	ctx := context.Background()
	api := &MockFlightAPI{}
	api.On("ApproveFlight", ctx, int64(42)).Return(domain.Flight{}, errors.New("dial tcp: refused")).Once()
	n := &MockNotifier{}
	n.On("Notify", ctx, notify.Error("Error", "Could not approve the flight.")).Once()

	_, err := newService(api, n).Approve(ctx, 42)

	assert.Error(t, err)
	n.AssertExpectations(t)
}

func TestFlightService_RejectNeedsReason(t *testing.T) {
	ctx := context.Background()
	api := &MockFlightAPI{}
	n := &MockNotifier{}
	n.On("Notify", ctx, mock.MatchedBy(func(m notify.Message) bool { return m.Level == notify.LevelWarning })).Once()

	_, err := newService(api, n).Reject(ctx, 42, "too short")

	assert.ErrorIs(t, err, ErrReasonTooShort)
	api.AssertNotCalled(t, "RejectFlight", mock.Anything, mock.Anything, mock.Anything)

	api.On("RejectFlight", ctx, int64(42), "Missing aircraft details").Return(domain.Flight{ID: 42, Name: "X", Status: domain.FlightStatusRejected}, nil).Once()
	n.On("Notify", ctx, notify.Success("Flight rejected", "X")).Once()

	f, err := newService(api, n).Reject(ctx, 42, "  Missing aircraft details ")

	require.NoError(t, err)
	assert.Equal(t, domain.FlightStatusRejected, f.Status)
	n.AssertExpectations(t)
}

func TestFlightService_CancelDeleteReport(t *testing.T) {
	ctx := context.Background()
	api := &MockFlightAPI{}
	api.On("CancelFlight", ctx, int64(1)).Return(domain.Flight{ID: 1, Name: "A"}, nil).Once()
	api.On("DeleteFlight", ctx, int64(2)).Return(nil).Once()
	api.On("GenerateReport", ctx, domain.ReportFinished).Return("", nil).Once()
	n := &MockNotifier{}
	n.On("Notify", ctx, mock.MatchedBy(func(m notify.Message) bool { return m.Level == notify.LevelSuccess })).Times(3)

	s := newService(api, n)
	_, err := s.Cancel(ctx, 1)
	assert.NoError(t, err)
	assert.NoError(t, s.Delete(ctx, 2))
	assert.NoError(t, s.GenerateReport(ctx, domain.ReportFinished))

	api.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestFlightService_Reads(t *testing.T) {
	ctx := context.Background()
	api := &MockFlightAPI{}
	api.On("ListFlights", ctx, domain.BucketUpcoming).Return([]domain.Flight{{ID: 1}}, nil).Once()
	api.On("GetFlight", ctx, int64(1)).Return(domain.Flight{ID: 1}, nil).Once()
	api.On("GetFlight", ctx, int64(2)).Return(domain.Flight{}, errors.New("not found")).Once()
	api.On("ListAirlines", ctx).Return([]domain.Airline{{ID: 1, Name: "Air Serbia"}}, nil).Once()

	s := newService(api, &MockNotifier{})
	list, err := s.List(ctx, domain.BucketUpcoming)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	f, err := s.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.ID)

	f, err = s.GetByID(ctx, 2)
	assert.Error(t, err)
	assert.Nil(t, f)

	airlines, err := s.Airlines(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Air Serbia", airlines[0].Name)
}
