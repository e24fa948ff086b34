package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/view"
)

type FlightActions interface {
	SetFlightFilter(f view.FlightFilter) error
	Book(ctx context.Context, flightID int64) (*apiclient.PurchaseReceipt, error)
	CreateFlight(ctx context.Context, in domain.FlightInput) (*domain.Flight, error)
	UpdateFlight(ctx context.Context, id int64, in domain.FlightInput) (*domain.Flight, error)
	CancelFlight(ctx context.Context, id int64) (*domain.Flight, error)
	DeleteFlight(ctx context.Context, id int64) error
	GenerateReport(ctx context.Context, rt domain.ReportType) error
	Approve(ctx context.Context, id int64) (*domain.Flight, error)
	Reject(ctx context.Context, id int64, reason string) (*domain.Flight, error)
}

type FlightHandler struct {
	actions FlightActions
}

type rejectRequest struct {
	Reason string `json:"razlog"`
}

type reportRequest struct {
	ReportType string `json:"report_type" binding:"required"`
}

type bookingResponse struct {
	Message string         `json:"message"`
	Ticket  *domain.Ticket `json:"ticket,omitempty"`
}

func NewFlightHandler(actions FlightActions) *FlightHandler {
	return &FlightHandler{actions: actions}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.PUT("/filter", h.filter)
	router.POST("/", h.create)
	router.PUT("/:id", h.update)
	router.DELETE("/:id", h.delete)
	router.POST("/:id/book", h.book)
	router.POST("/:id/cancel", h.cancel)
	router.POST("/:id/approve", h.approve)
	router.POST("/:id/reject", h.reject)
	router.POST("/report", h.report)
}

func (h *FlightHandler) filter(c *gin.Context) {
	var f view.FlightFilter
	if err := c.ShouldBindJSON(&f); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.actions.SetFlightFilter(f); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlightHandler) book(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	receipt, err := h.actions.Book(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, bookingResponse{Message: receipt.Message, Ticket: receipt.Ticket})
}

func (h *FlightHandler) create(c *gin.Context) {
	var in domain.FlightInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := h.actions.CreateFlight(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in domain.FlightInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := h.actions.UpdateFlight(c.Request.Context(), id, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.actions.CancelFlight(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.actions.DeleteFlight(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *FlightHandler) approve(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	flight, err := h.actions.Approve(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) reject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	flight, err := h.actions.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rt, ok := domain.ParseReportType(req.ReportType)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown report type"})
		return
	}
	if err := h.actions.GenerateReport(c.Request.Context(), rt); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
