// Package events implements the event lifecycle: every change runs
// persist, rescore and audit in one transaction and then notifies clients.
package events

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eventflow/backend/internal/audit"
	"github.com/eventflow/backend/internal/models"
	"github.com/eventflow/backend/internal/realtime"
	"github.com/eventflow/backend/internal/scoring"
	"github.com/eventflow/backend/internal/store"
)

var (
	// ErrEventNotFound is returned when the event does not exist.
	ErrEventNotFound = fmt.Errorf("event: %w", store.ErrNotFound)
	// ErrForbidden is returned when the caller does not own the event.
	ErrForbidden = errors.New("event belongs to another organizer")
	// ErrInvalidEvent is returned when required event fields are missing.
	ErrInvalidEvent = errors.New("invalid event")
)

// Result is a committed event change plus any post-commit side effects that failed.
type Result struct {
	Event    *models.Event
	Warnings []string
}

// CreateInput holds the fields of a new event.
type CreateInput struct {
	Title       string
	Description string
	Date        time.Time
	Location    string
}

// UpdatedPayload is broadcast as event_updated.
type UpdatedPayload struct {
	Title string    `json:"title"`
	Date  time.Time `json:"date"`
}

// OrganizerEvents splits an organizer's events on the current time.
type OrganizerEvents struct {
	Live      []models.Event `json:"liveEvents"`
	Completed []models.Event `json:"completedEvents"`
	All       []models.Event `json:"allEvents"`
}

// Service runs event lifecycle operations.
type Service struct {
	store  store.Store
	scorer *scoring.Engine
	audit  *audit.Recorder
	notify *Notifier
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates an event service.
func NewService(st store.Store, scorer *scoring.Engine, rec *audit.Recorder, notify *Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, scorer: scorer, audit: rec, notify: notify, logger: logger, now: time.Now}
}

func validate(title string, date time.Time) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidEvent)
	}
	return nil
}

// Create persists a new event owned by organizerID and announces it.
func (s *Service) Create(ctx context.Context, organizerID int64, in CreateInput) (*Result, error) {
	if err := validate(in.Title, in.Date); err != nil {
		return nil, err
	}
	var created *models.Event
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		e := &models.Event{
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			Date:        in.Date,
			Location:    in.Location,
			OrganizerID: organizerID,
		}
		if err := tx.CreateEvent(ctx, e); err != nil {
			return fmt.Errorf("create event: %w", err)
		}
		if _, err := s.scorer.Recompute(ctx, tx, e.ID); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.ActionEventCreated, organizerID); err != nil {
			return err
		}
		var err error
		created, err = tx.GetEventByID(ctx, e.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event created", zap.Int64("event_id", created.ID), zap.Int64("organizer_id", organizerID))
	return &Result{Event: created, Warnings: s.notify.AfterCommit(ctx, realtime.EventCreated, created)}, nil
}

// ownedEvent loads eventID and checks it belongs to organizerID.
func ownedEvent(ctx context.Context, tx store.Store, organizerID, eventID int64) (*models.Event, error) {
	e, err := tx.GetEventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	if e.OrganizerID != organizerID {
		return nil, ErrForbidden
	}
	return e, nil
}

// Update applies the non-nil fields to an event owned by organizerID.
func (s *Service) Update(ctx context.Context, organizerID, eventID int64, fields models.EventFields) (*Result, error) {
	var updated *models.Event
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		e, err := ownedEvent(ctx, tx, organizerID, eventID)
		if err != nil {
			return err
		}
		fields.Apply(e)
		e.Title = strings.TrimSpace(e.Title)
		if err := validate(e.Title, e.Date); err != nil {
			return err
		}
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		if _, err := s.scorer.Recompute(ctx, tx, eventID); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.ActionEventUpdated, organizerID); err != nil {
			return err
		}
		updated, err = tx.GetEventByID(ctx, eventID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event updated", zap.Int64("event_id", eventID), zap.Int64("organizer_id", organizerID))
	payload := UpdatedPayload{Title: updated.Title, Date: updated.Date}
	return &Result{Event: updated, Warnings: s.notify.AfterCommit(ctx, realtime.EventUpdated, payload)}, nil
}

// Delete removes an event owned by organizerID together with its
// registrations and feedback.
func (s *Service) Delete(ctx context.Context, organizerID, eventID int64) (*Result, error) {
	var deleted *models.Event
	err := s.store.WithTx(ctx, func(tx store.Store) error {
		e, err := ownedEvent(ctx, tx, organizerID, eventID)
		if err != nil {
			return err
		}
		if err := tx.DeleteEvent(ctx, eventID); err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		// No-op once the event is gone.
		if _, err := s.scorer.Recompute(ctx, tx, eventID); err != nil {
			return err
		}
		if _, err := s.audit.Record(ctx, tx, audit.ActionEventDeleted, organizerID); err != nil {
			return err
		}
		deleted = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("event deleted", zap.Int64("event_id", eventID), zap.Int64("organizer_id", organizerID))
	return &Result{Event: deleted, Warnings: s.notify.AfterCommit(ctx, realtime.EventDeleted, eventID)}, nil
}

// List returns every event with its organizer, ordered by date.
func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	cached, gen, ok := s.notify.cachedList(ctx)
	if ok {
		return cached, nil
	}
	list, err := s.store.ListEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	if list == nil {
		list = []models.Event{}
	}
	s.notify.storeList(ctx, gen, list)
	return list, nil
}

// Get returns one event with its organizer.
func (s *Service) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	e, err := s.store.GetEventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	if u, err := s.store.GetUserByID(ctx, e.OrganizerID); err == nil {
		pub := u.ToPublic()
		e.Organizer = &pub
	}
	return e, nil
}

// Engagement returns the stored engagement score of an event.
func (s *Service) Engagement(ctx context.Context, eventID int64) (int, error) {
	e, err := s.store.GetEventByID(ctx, eventID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrEventNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get event: %w", err)
	}
	return e.Score, nil
}

// ListForOrganizer returns the organizer's upcoming events (soonest first)
// and past events (most recent first).
func (s *Service) ListForOrganizer(ctx context.Context, organizerID int64) (*OrganizerEvents, error) {
	list, err := s.store.ListEventsByOrganizer(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("list organizer events: %w", err)
	}
	now := s.now()
	out := &OrganizerEvents{Live: []models.Event{}, Completed: []models.Event{}}
	for _, e := range list {
		if e.Date.Before(now) {
			out.Completed = append(out.Completed, e)
		} else {
			out.Live = append(out.Live, e)
		}
	}
	sort.SliceStable(out.Completed, func(i, j int) bool { return out.Completed[i].Date.After(out.Completed[j].Date) })
	out.All = append(append([]models.Event{}, out.Live...), out.Completed...)
	return out, nil
}

// ListForAttendee returns the events the attendee is registered for.
func (s *Service) ListForAttendee(ctx context.Context, attendeeID int64) ([]models.Event, error) {
	regs, err := s.store.ListRegistrationsByAttendee(ctx, attendeeID)
	if err != nil {
		return nil, fmt.Errorf("list attendee registrations: %w", err)
	}
	out := make([]models.Event, 0, len(regs))
	for _, r := range regs {
		if r.Event != nil {
			out = append(out, *r.Event)
		}
	}
	return out, nil
}
