package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airdash/internal/domain"
)

// AccountActions covers tickets, ratings, the viewer's own account and the
// administrator's user management.
type AccountActions interface {
	CancelTicket(ctx context.Context, ticketID int64) error
	RateFlight(ctx context.Context, in domain.RatingInput) (*domain.FlightRating, error)
	Deposit(ctx context.Context, amount float64) (float64, error)
	UpdateProfile(ctx context.Context, update domain.UserUpdate) (*domain.User, error)
	ChangeRole(ctx context.Context, userID int64, role domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, userID int64) error
}

type BookingHandler struct {
	actions AccountActions
}

type depositRequest struct {
	Amount float64 `json:"iznos"`
}

type depositResponse struct {
	Balance float64 `json:"stanje_racuna"`
}

type roleRequest struct {
	Role domain.Role `json:"nova_uloga" binding:"required"`
}

func NewBookingHandler(actions AccountActions) *BookingHandler {
	return &BookingHandler{actions: actions}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.POST("/tickets/:id/cancel", h.cancelTicket)
	router.POST("/ratings", h.rate)
	router.POST("/account/deposit", h.deposit)
	router.PUT("/account/profile", h.updateProfile)
	router.POST("/users/:id/role", h.changeRole)
	router.DELETE("/users/:id", h.deleteUser)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func (h *BookingHandler) cancelTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.actions.CancelTicket(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *BookingHandler) rate(c *gin.Context) {
	var in domain.RatingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rating, err := h.actions.RateFlight(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rating)
}

func (h *BookingHandler) deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	balance, err := h.actions.Deposit(c.Request.Context(), req.Amount)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, depositResponse{Balance: balance})
}

func (h *BookingHandler) updateProfile(c *gin.Context) {
	var update domain.UserUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.actions.UpdateProfile(c.Request.Context(), update)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *BookingHandler) changeRole(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.actions.ChangeRole(c.Request.Context(), id, req.Role)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *BookingHandler) deleteUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.actions.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
