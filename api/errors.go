package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/dashboard"
	"github.com/Domenick1991/airdash/internal/service/booking"
	"github.com/Domenick1991/airdash/internal/service/flights"
	"github.com/Domenick1991/airdash/internal/view"
)

func statusFor(err error) int {
	var valErr *apiclient.ValidationError
	var reqErr *apiclient.RequestError
	switch {
	case errors.As(err, &valErr),
		errors.Is(err, flights.ErrReasonTooShort),
		errors.Is(err, booking.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, apiclient.ErrUnauthorized),
		errors.Is(err, dashboard.ErrNotLoggedIn),
		errors.Is(err, booking.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, dashboard.ErrNoSuchView),
		errors.Is(err, view.ErrFlightNotFound),
		errors.Is(err, view.ErrUserNotFound):
		return http.StatusNotFound
	case errors.As(err, &reqErr):
		if reqErr.Status >= 400 && reqErr.Status < 500 {
			return reqErr.Status
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func fail(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var valErr *apiclient.ValidationError
	if errors.As(err, &valErr) {
		body["fields"] = valErr.Fields
	}
	c.JSON(statusFor(err), body)
}
