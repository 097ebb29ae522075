// Package registrations manages attendee sign-ups for events.
package registrations

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/audit"
	"github.com/eventflow/backend/internal/events"
	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/realtime"
	"github.com/eventflow/backend/internal/scoring"
	"github.com/eventflow/backend/internal/store"
)

var (
	// ErrAlreadyRegistered is returned when the attendee already holds a registration for the event.
	ErrAlreadyRegistered = fmt.Errorf("already registered: %w", store.ErrDuplicate)
	// ErrRegistrationNotFound is returned when the registration does not exist or belongs to another event.
	ErrRegistrationNotFound = fmt.Errorf("registration: %w", store.ErrNotFound)
)

// Result is a committed registration change plus post-commit warnings.
type Result struct {
	Registration *models.Registration
	Removed      int64
	Warnings     []string
}

// Service runs registration operations.
type Service struct {
	store  store.Store
	scorer *scoring.Engine
	audit  *audit.Recorder
	notify *events.Notifier
	logger *zap.Logger
}

// NewService creates a registration service.
func NewService(st store.Store, scorer *scoring.Engine, rec *audit.Recorder, notify *events.Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, scorer: scorer, audit: rec, notify: notify, logger: logger}
}

// Register signs attendeeID up for eventID. A second registration for the
// same pair fails with ErrAlreadyRegistered.
func (s *Service) Register(ctx context.Context, attendeeID, eventID int64) (*Result, error) {
	var (
		reg      *models.Registration
		event    *models.Event
		attendee *models.User
	)
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		event, err = tx.GetEventByID(ctx, eventID)
		if errors.Is(err, store.ErrNotFound) {
			return events.ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("load event: %w", err)
		}
		reg = &models.Registration{AttendeeID: attendeeID, EventID: eventID}
		if err := tx.CreateRegistration(ctx, reg); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyRegistered
			}
			return fmt.Errorf("create registration: %w", err)
		}
		if _, err := s.scorer.Recompute(ctx, tx, eventID); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.ActionRegistered, attendeeID); err != nil {
			return err
		}
		attendee, err = tx.GetUserByID(ctx, attendeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendee registered", zap.Int64("event_id", eventID), zap.Int64("attendee_id", attendeeID))
	warnings := s.notify.AfterCommit(ctx, realtime.Notification, realtime.NotificationPayload{
		EventID: eventID,
		Message: fmt.Sprintf("%s registered for %s", attendee.Name, event.Title),
	})
	return &Result{Registration: reg, Warnings: warnings}, nil
}

// Unregister removes every registration attendeeID holds for eventID.
// Removing nothing is not an error.
func (s *Service) Unregister(ctx context.Context, attendeeID, eventID int64) (*Result, error) {
	var removed int64
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		var err error
		removed, err = tx.DeleteRegistrations(ctx, attendeeID, eventID)
		if err != nil {
			return fmt.Errorf("delete registrations: %w", err)
		}
		if _, err := s.scorer.Recompute(ctx, tx, eventID); err != nil {
			return err
		}
		_, err = s.audit.Record(ctx, tx, audit.ActionUnregistered, attendeeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendee unregistered", zap.Int64("event_id", eventID),
		zap.Int64("attendee_id", attendeeID), zap.Int64("removed", removed))
	res := &Result{Removed: removed}
	if removed > 0 {
		res.Warnings = s.notify.AfterCommit(ctx, realtime.Notification, realtime.NotificationPayload{
			EventID: eventID,
			Message: "An attendee unregistered from an event.",
		})
	}
	return res, nil
}

// ListMine returns the attendee's registrations with their events.
func (s *Service) ListMine(ctx context.Context, attendeeID int64) ([]models.Registration, error) {
	list, err := s.store.ListRegistrationsByAttendee(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if list == nil {
		list = []models.Registration{}
	}
	return list, nil
}

// organizerEvent loads eventID if organizerID owns it. Missing and foreign
// events both report ErrEventNotFound.
func organizerEvent(ctx context.Context, st store.Store, organizerID, eventID int64) (*models.Event, error) {
	e, err := st.GetEventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, events.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if e.OrganizerID != organizerID {
		return nil, events.ErrEventNotFound
	}
	return e, nil
}

// ListForEvent returns the registrations of an event owned by organizerID.
func (s *Service) ListForEvent(ctx context.Context, organizerID, eventID int64) ([]models.Registration, error) {
	if _, err := organizerEvent(ctx, s.store, organizerID, eventID); err != nil {
		return nil, err
	}
	list, err := s.store.ListRegistrationsByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if list == nil {
		list = []models.Registration{}
	}
	return list, nil
}

// Confirm marks a registration as confirmed and records the organizer as
// responsive. Every event of the organizer is rescored.
func (s *Service) Confirm(ctx context.Context, organizerID, eventID, registrationID int64) (*Result, error) {
	var reg *models.Registration
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := organizerEvent(ctx, tx, organizerID, eventID); err != nil {
			return err
		}
		var err error
		reg, err = tx.GetRegistrationByID(ctx, registrationID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && reg.EventID != eventID) {
			return ErrRegistrationNotFound
		}
		if err != nil {
			return fmt.Errorf("load registration: %w", err)
		}
		if err := tx.ConfirmRegistration(ctx, registrationID); err != nil {
			return fmt.Errorf("confirm registration: %w", err)
		}
		if err := tx.SetUserResponded(ctx, organizerID, true); err != nil {
			return fmt.Errorf("mark organizer responded: %w", err)
		}
		owned, err := tx.ListEventsByOrganizer(ctx, organizerID)
		if err != nil {
			return fmt.Errorf("list organizer events: %w", err)
		}
		for _, e := range owned {
			if _, err := s.scorer.Recompute(ctx, tx, e.ID); err != nil {
				return err
			}
		}
		if _, err := s.audit.Record(ctx, tx, audit.ActionRegistrationConfirmed, organizerID); err != nil {
			return err
		}
		reg, err = tx.GetRegistrationByID(ctx, registrationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("registration confirmed", zap.Int64("event_id", eventID), zap.Int64("registration_id", registrationID))
	warnings := s.notify.AfterCommit(ctx, realtime.Notification, realtime.NotificationPayload{
		EventID: eventID,
		Message: "Your registration has been confirmed.",
	})
	return &Result{Registration: reg, Warnings: warnings}, nil
}
