// Package feedback collects attendee comments on events.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/audit"
	"github.com/eventflow/backend/internal/events"
	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/realtime"
	"github.com/eventflow/backend/internal/scoring"
	"github.com/eventflow/backend/internal/store"
)

var (
	// ErrNotRegistered is returned when the attendee holds no registration for the event.
	ErrNotRegistered = errors.New("only registered attendees can leave feedback")
	// ErrInvalidMessage is returned for an empty or oversized message.
	ErrInvalidMessage = errors.New("invalid feedback message")
)

const maxMessageLen = 2000

// Service handles feedback submission and review.
type Service struct {
	store  store.Store
	scorer *scoring.Engine
	audit  *audit.Recorder
	notify *events.Notifier
	logger *zap.Logger
}

// NewService creates a feedback service.
func NewService(st store.Store, scorer *scoring.Engine, rec *audit.Recorder, notify *events.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, scorer: scorer, audit: rec, notify: notify, logger: logger}
}

// Submit stores feedback from a registered attendee and rescores the event.
func (s *Service) Submit(ctx context.Context, attendeeID, eventID int64, message string) (*models.Feedback, []string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, fmt.Errorf("%w: message is required", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(message) > maxMessageLen {
		return nil, nil, fmt.Errorf("%w: at most %d characters", ErrInvalidMessage, maxMessageLen)
	}
	fb := &models.Feedback{EventID: eventID, AttendeeID: attendeeID, Message: message}
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetEventByID(ctx, eventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return events.ErrEventNotFound
			}
			return fmt.Errorf("load event: %w", err)
		}
		if _, err := tx.GetRegistration(ctx, attendeeID, eventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotRegistered
			}
			return fmt.Errorf("load registration: %w", err)
		}
		if err := tx.CreateFeedback(ctx, fb); err != nil {
			return fmt.Errorf("create feedback: %w", err)
		}
		if _, err := s.scorer.Recompute(ctx, tx, eventID); err != nil {
			return err
		}
		_, err := s.audit.Record(ctx, tx, audit.ActionFeedbackSubmitted, attendeeID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("feedback submitted", zap.Int64("event_id", eventID), zap.Int64("attendee_id", attendeeID))
	warnings := s.notify.AfterCommit(ctx, realtime.Notification, realtime.NotificationPayload{
		EventID: eventID,
		Message: "New feedback was posted.",
	})
	return fb, warnings, nil
}

// ListForEvent returns feedback for an event owned by organizerID. Missing
// and foreign events both report events.ErrEventNotFound.
func (s *Service) ListForEvent(ctx context.Context, organizerID, eventID int64) ([]models.Feedback, error) {
	e, err := s.store.GetEventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && e.OrganizerID != organizerID) {
		return nil, events.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	list, err := s.store.ListFeedbackByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	if list == nil {
		list = []models.Feedback{}
	}
	return list, nil
}
