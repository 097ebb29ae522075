// Package audit records and lists the append-only audit log.
package audit

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/store"
)

// Action names recorded in the audit log.
const (
	ActionEventCreated          = "CREATE_EVENT"
	ActionEventUpdated          = "EVENT_UPDATE"
	ActionEventDeleted          = "EVENT_DELETED"
	ActionRegistered            = "REGISTERED_EVENT"
	ActionUnregistered          = "UNREGISTERED_EVENT"
	ActionRegistrationConfirmed = "REGISTRATION_CONFIRMED"
	ActionFeedbackSubmitted     = "FEEDBACK_SUBMITTED"
)

// ErrUserNotFound is returned when the acting user does not exist.
var ErrUserNotFound = fmt.Errorf("audit user: %w", store.ErrNotFound)

// Writer is the slice of the data store the recorder needs.
type Writer interface {
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
}

// Recorder appends audit entries and mirrors them to the structured log.
type Recorder struct {
	logger *zap.Logger
}

// NewRecorder creates an audit recorder.
func NewRecorder(logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{logger: logger}
}

// Record verifies that userID exists and appends an entry for action.
// Callers pass the transaction-scoped store so the entry commits or rolls
// back together with the change it describes.
func (r *Recorder) Record(ctx context.Context, w Writer, action string, userID int64) (*models.AuditLog, error) {
	if _, err := w.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			r.logger.Warn("audit event rejected", zap.Bool("audit", true), zap.String("action", action),
				zap.Int64("user_id", userID), zap.String("failure_reason", "user not found"))
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load audit user: %w", err)
	}

	entry := &models.AuditLog{Action: action, UserID: userID}
	if err := w.CreateAuditLog(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit log: %w", err)
	}
	r.logger.Info("audit event", zap.Bool("audit", true), zap.String("action", action),
		zap.Int64("user_id", userID), zap.Int64("audit_id", entry.ID))
	return entry, nil
}
