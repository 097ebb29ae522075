package feedback

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/events"
	"github.com/eventflow/backend/internal/middleware"
	"github.com/eventflow/backend/pkg/response"
)

// SubmitRequest is the body for POST /events/:id/feedback.
type SubmitRequest struct {
	Message string `json:"message" binding:"required"`
}

// Handler handles feedback HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a feedback handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, events.ErrEventNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, ErrNotRegistered):
		response.Forbidden(c, err.Error())
	case errors.Is(err, ErrInvalidMessage):
		response.BadRequest(c, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		response.Internal(c, msg)
	}
}

// Submit handles POST /events/:id/feedback.
func (h *Handler) Submit(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		response.BadRequest(c, "invalid event id")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	fb, warnings, err := h.svc.Submit(c.Request.Context(), middleware.UserID(c), eventID, req.Message)
	if err != nil {
		h.fail(c, err, "failed to submit feedback")
		return
	}
	response.Created(c, fb, warnings...)
}

// List handles GET /events/:id/feedback (organizer only).
func (h *Handler) List(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		response.BadRequest(c, "invalid event id")
		return
	}
	list, err := h.svc.ListForEvent(c.Request.Context(), middleware.UserID(c), eventID)
	if err != nil {
		h.fail(c, err, "failed to list feedback")
		return
	}
	response.OK(c, list)
}
