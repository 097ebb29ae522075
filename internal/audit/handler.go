package audit

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/store"
	"github.com/eventflow/backend/pkg/response"
)

const (
	defaultListLimit = 200
	maxListLimit     = 1000
)

// Handler serves the admin audit log view.
type Handler struct {
	store  store.Store
	logger *zap.Logger
}

// NewHandler creates an audit log handler.
func NewHandler(s store.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: s, logger: logger}
}

// List handles GET /api/auth/audit-logs (admin). Optional ?user_id= and ?limit=.
func (h *Handler) List(c *gin.Context) {
	filter := store.AuditFilter{Limit: defaultListLimit}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			response.BadRequest(c, "invalid user_id")
			return
		}
		filter.UserID = id
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		filter.Limit = min(n, maxListLimit)
	}
	logs, err := h.store.ListAuditLogs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list audit logs failed", zap.Error(err))
		response.Internal(c, "failed to fetch audit logs")
		return
	}
	response.OK(c, logs)
}
