package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/service/booking"
	"github.com/Domenick1991/airdash/internal/service/flights"
	"github.com/Domenick1991/airdash/internal/view"
)

// MockFlightActions is a mock implementation of FlightActions
type MockFlightActions struct {
	mock.Mock
}

func (m *MockFlightActions) SetFlightFilter(f view.FlightFilter) error {
	return m.Called(f).Error(0)
}

func (m *MockFlightActions) Book(ctx context.Context, flightID int64) (*apiclient.PurchaseReceipt, error) {
	args := m.Called(ctx, flightID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*apiclient.PurchaseReceipt), args.Error(1)
}

func (m *MockFlightActions) CreateFlight(ctx context.Context, in domain.FlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightActions) UpdateFlight(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightActions) CancelFlight(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightActions) DeleteFlight(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockFlightActions) GenerateReport(ctx context.Context, rt domain.ReportType) error {
	return m.Called(ctx, rt).Error(0)
}

func (m *MockFlightActions) Approve(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightActions) Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error) {
	args := m.Called(ctx, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	c.Request = httptest.NewRequest(method, target, &buf)
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestFlightHandler_approve(t *testing.T) {
	mockActions := &MockFlightActions{}
	handler := NewFlightHandler(mockActions)

	c, w := newTestContext("POST", "/api/flights/42/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "42"}}

	flight := &domain.Flight{ID: 42, Name: "JU500", Status: domain.FlightStatusApproved}
	mockActions.On("Approve", c.Request.Context(), int64(42)).Return(flight, nil)

	handler.approve(c)

	assert.Equal(t, http.StatusOK, w.Code)
	var got domain.Flight
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.FlightStatusApproved, got.Status)
	mockActions.AssertExpectations(t)
}

func TestFlightHandler_rejectTooShort(t *testing.T) {
	mockActions := &MockFlightActions{}
	handler := NewFlightHandler(mockActions)

	c, w := newTestContext("POST", "/api/flights/42/reject", rejectRequest{Reason: "no"})
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	mockActions.On("Reject", c.Request.Context(), int64(42), "no").Return(nil, flights.ErrReasonTooShort)

	handler.reject(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockActions.AssertExpectations(t)
}

func TestFlightHandler_book(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		status int
	}{
		{"accepted", nil, http.StatusAccepted},
		{"insufficient funds", booking.ErrInsufficientFunds, http.StatusBadRequest},
		{"not on board", view.ErrFlightNotFound, http.StatusNotFound},
		{"backend down", &apiclient.RequestError{Status: http.StatusServiceUnavailable}, http.StatusBadGateway},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockActions := &MockFlightActions{}
			handler := NewFlightHandler(mockActions)
			c, w := newTestContext("POST", "/api/flights/7/book", nil)
			c.Params = gin.Params{{Key: "id", Value: "7"}}
			if tc.err != nil {
				mockActions.On("Book", c.Request.Context(), int64(7)).Return(nil, tc.err)
			} else {
				mockActions.On("Book", c.Request.Context(), int64(7)).Return(&apiclient.PurchaseReceipt{Message: "processing"}, nil)
			}

			handler.book(c)

			assert.Equal(t, tc.status, w.Code)
			mockActions.AssertExpectations(t)
		})
	}
}

func TestFlightHandler_invalidID(t *testing.T) {
	mockActions := &MockFlightActions{}
	handler := NewFlightHandler(mockActions)
	c, w := newTestContext("DELETE", "/api/flights/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.delete(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockActions.AssertNotCalled(t, "DeleteFlight", mock.Anything, mock.Anything)
}

func TestFlightHandler_report(t *testing.T) {
	mockActions := &MockFlightActions{}
	handler := NewFlightHandler(mockActions)
	c, w := newTestContext("POST", "/api/flights/report", reportRequest{ReportType: "in-progress"})
	mockActions.On("GenerateReport", c.Request.Context(), domain.ReportInProgress).Return(nil)

	handler.report(c)
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusAccepted, w.Code)
	mockActions.AssertExpectations(t)
}

func TestFlightHandler_createValidation(t *testing.T) {
	mockActions := &MockFlightActions{}
	handler := NewFlightHandler(mockActions)
	in := domain.FlightInput{Name: "JU500"}
	c, w := newTestContext("POST", "/api/flights/", in)

	var verr apiclient.ValidationError
	verr.Add("cena_karte", "price must be positive")
	mockActions.On("CreateFlight", c.Request.Context(), in).Return(nil, &verr)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "cena_karte")
}
