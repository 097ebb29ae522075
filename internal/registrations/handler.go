package registrations

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/audit"
	"github.com/eventflow/backend/internal/events"
	"github.com/eventflow/backend/internal/middleware"
	"github.com/eventflow/backend/pkg/response"
)

// EventRequest is the body for POST /registrations/register and /registrations/unregister.
type EventRequest struct {
	EventID int64 `json:"eventId" binding:"required,gt=0"`
}

// Handler handles registration HTTP endpoints.
type Handler struct {
	svc    *Service
	logger *zap.Logger
}

// NewHandler creates a registrations handler.
func NewHandler(svc *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	switch {
	case errors.Is(err, ErrAlreadyRegistered):
		response.Conflict(c, "already registered for this event")
	case errors.Is(err, ErrRegistrationNotFound):
		response.NotFound(c, "registration not found")
	case errors.Is(err, events.ErrEventNotFound):
		response.NotFound(c, "event not found")
	case errors.Is(err, audit.ErrUserNotFound):
		response.Unauthorized(c, "user no longer exists")
	default:
		h.logger.Error(msg, zap.Error(err), zap.String("path", c.FullPath()))
		response.Internal(c, msg)
	}
}

// Register handles POST /registrations/register.
func (h *Handler) Register(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Register(c.Request.Context(), middleware.UserID(c), req.EventID)
	if err != nil {
		h.fail(c, err, "failed to register")
		return
	}
	response.Created(c, res.Registration, res.Warnings...)
}

// Unregister handles POST /registrations/unregister.
func (h *Handler) Unregister(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	res, err := h.svc.Unregister(c.Request.Context(), middleware.UserID(c), req.EventID)
	if err != nil {
		h.fail(c, err, "failed to unregister")
		return
	}
	response.OK(c, gin.H{"eventId": req.EventID, "removed": res.Removed}, res.Warnings...)
}

// ListMine handles GET /registrations/my.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.svc.ListMine(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, err, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// ListForEvent handles GET /registrations/event/:id (organizer only).
func (h *Handler) ListForEvent(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	list, err := h.svc.ListForEvent(c.Request.Context(), middleware.UserID(c), eventID)
	if err != nil {
		h.fail(c, err, "failed to list registrations")
		return
	}
	response.OK(c, list)
}

// Confirm handles POST /registrations/event/:id/confirm/:registrationId (organizer only).
func (h *Handler) Confirm(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	registrationID, ok := pathID(c, "registrationId")
	if !ok {
		return
	}
	res, err := h.svc.Confirm(c.Request.Context(), middleware.UserID(c), eventID, registrationID)
	if err != nil {
		h.fail(c, err, "failed to confirm registration")
		return
	}
	response.OK(c, res.Registration, res.Warnings...)
}
