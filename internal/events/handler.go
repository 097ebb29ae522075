package events

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/middleware"
	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/pkg/response"
)

// Date layouts accepted from clients, most specific first.
var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Date        string `json:"date" binding:"required"`
	Location    string `json:"location"`
}

// UpdateRequest is the body for PUT /events/:id. Omitted fields are unchanged.
type UpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	Location    *string `json:"location"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates an event handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func eventID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid event id")
		return 0, false
	}
	return id, true
}

// fail maps service errors to responses.
func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrEventNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrForbidden):
		response.Forbidden(c, "you can only modify your own events")
	case errors.Is(err, ErrInvalidEvent):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, msg)
	}
}

// Create handles POST /events (organizer only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		response.BadRequest(c, "invalid date")
		return
	}
	res, err := h.svc.Create(c.Request.Context(), middleware.UserID(c), CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Date:        date,
		Location:    req.Location,
	})
	if err != nil {
		h.fail(c, err, "failed to create event")
		return
	}
	response.Created(c, res.Event, res.Warnings...)
}

// Update handles PUT /events/:id (organizer only, owner only).
func (h *Handler) Update(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	fields := models.EventFields{Title: req.Title, Description: req.Description, Location: req.Location}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			response.BadRequest(c, "invalid date")
			return
		}
		fields.Date = &date
	}
	res, err := h.svc.Update(c.Request.Context(), middleware.UserID(c), id, fields)
	if err != nil {
		h.fail(c, err, "failed to update event")
		return
	}
	response.OK(c, res.Event, res.Warnings...)
}

// Delete handles DELETE /events/:id (organizer only, owner only).
func (h *Handler) Delete(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	res, err := h.svc.Delete(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		h.fail(c, err, "failed to delete event")
		return
	}
	response.OK(c, gin.H{"id": id}, res.Warnings...)
}

// List handles GET /events.
func (h *Handler) List(c *gin.Context) {
	list, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Get handles GET /events/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	e, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get event")
		return
	}
	response.OK(c, e)
}

// Engagement handles GET /events/:id/engagement.
func (h *Handler) Engagement(c *gin.Context) {
	id, ok := eventID(c)
	if !ok {
		return
	}
	score, err := h.svc.Engagement(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to get engagement score")
		return
	}
	response.OK(c, gin.H{"eventId": id, "score": score})
}

// ListForOrganizer handles GET /events/organizer/events.
func (h *Handler) ListForOrganizer(c *gin.Context) {
	out, err := h.svc.ListForOrganizer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "failed to list organizer events")
		return
	}
	response.OK(c, out)
}

// ListForAttendee handles GET /events/attendee/events.
func (h *Handler) ListForAttendee(c *gin.Context) {
	list, err := h.svc.ListForAttendee(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "failed to list registered events")
		return
	}
	response.OK(c, gin.H{"registeredEvents": list})
}
