package api

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/session"
)

// Pages is the read side of the dashboard: mounted pages and the session
// that decides which ones are mounted.
type Pages interface {
	Pages() []string
	Snapshot(name string) (interface{}, error)
	Watch(name string) (<-chan struct{}, func(), error)
	Session() session.Session
	Login(ctx context.Context, email, password string) (*domain.User, error)
	Logout(ctx context.Context) error
	Register(ctx context.Context, data domain.RegisterData) (*domain.User, error)
}

type Notifications interface {
	Recent(n int) []notify.Notification
	Subscribe(buffer int) (<-chan notify.Notification, func())
}

type ViewHandler struct {
	pages  Pages
	notify Notifications
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type sessionResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
	Pages         []string     `json:"pages"`
}

func NewViewHandler(pages Pages, notifications Notifications) *ViewHandler {
	return &ViewHandler{pages: pages, notify: notifications}
}

func (h *ViewHandler) Register(router *gin.RouterGroup) {
	router.GET("/session", h.session)
	router.POST("/session/login", h.login)
	router.POST("/session/logout", h.logout)
	router.POST("/session/register", h.register)

	router.GET("/views", h.list)
	router.GET("/views/:name", h.get)
	router.GET("/views/:name/stream", h.stream)

	router.GET("/notifications", h.notifications)
	router.GET("/notifications/stream", h.notificationStream)
}

func (h *ViewHandler) sessionBody() sessionResponse {
	sess := h.pages.Session()
	return sessionResponse{Authenticated: sess.Authenticated(), User: sess.User, Pages: h.pages.Pages()}
}

func (h *ViewHandler) session(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessionBody())
}

func (h *ViewHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if _, err := h.pages.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionBody())
}

func (h *ViewHandler) logout(c *gin.Context) {
	if err := h.pages.Logout(c.Request.Context()); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ViewHandler) register(c *gin.Context) {
	var data domain.RegisterData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.pages.Register(c.Request.Context(), data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *ViewHandler) list(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"pages": h.pages.Pages()})
}

func (h *ViewHandler) get(c *gin.Context) {
	snap, err := h.pages.Snapshot(c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// stream pushes a fresh snapshot of the page after every change until the
// client leaves or the page is unmounted.
func (h *ViewHandler) stream(c *gin.Context) {
	name := c.Param("name")
	ticks, cancel, err := h.pages.Watch(name)
	if err != nil {
		fail(c, err)
		return
	}
	defer cancel()

	if snap, err := h.pages.Snapshot(name); err == nil {
		c.SSEvent("snapshot", snap)
		c.Writer.Flush()
	}
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case _, ok := <-ticks:
			if !ok {
				c.SSEvent("unmounted", name)
				return false
			}
			snap, err := h.pages.Snapshot(name)
			if err != nil {
				return false
			}
			c.SSEvent("snapshot", snap)
			return true
		}
	})
}

func (h *ViewHandler) notifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	c.JSON(http.StatusOK, h.notify.Recent(limit))
}

func (h *ViewHandler) notificationStream(c *gin.Context) {
	ch, cancel := h.notify.Subscribe(16)
	defer cancel()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case n, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", n)
			return true
		}
	})
}
