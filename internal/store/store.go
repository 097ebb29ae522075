// Package store is the data store gateway for users, events, registrations,
// feedback and audit logs.
package store

import (
	"context"
	"errors"

	"github.com/eventflow/backend/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// AuditFilter narrows ListAuditLogs. Zero values mean no filter.
type AuditFilter struct {
	UserID int64
	Limit  int
}

// Store is implemented by the Postgres and in-memory drivers.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.UserPublic, error)
	SetUserResponded(ctx context.Context, id int64, responded bool) error

	CreateEvent(ctx context.Context, e *models.Event) error
	GetEventByID(ctx context.Context, id int64) (*models.Event, error)
	// GetEventDetail loads the event with its organizer, registrations and feedback.
	GetEventDetail(ctx context.Context, id int64) (*models.EventDetail, error)
	// ListEvents returns every event with its organizer, ordered by date.
	ListEvents(ctx context.Context) ([]models.Event, error)
	ListEventsByOrganizer(ctx context.Context, organizerID int64) ([]models.Event, error)
	UpdateEvent(ctx context.Context, e *models.Event) error
	DeleteEvent(ctx context.Context, id int64) error
	SetEventScore(ctx context.Context, id int64, score int) error

	// CreateRegistration returns ErrDuplicate if the attendee already holds a
	// registration for the event.
	CreateRegistration(ctx context.Context, r *models.Registration) error
	GetRegistration(ctx context.Context, attendeeID, eventID int64) (*models.Registration, error)
	GetRegistrationByID(ctx context.Context, id int64) (*models.Registration, error)
	DeleteRegistrations(ctx context.Context, attendeeID, eventID int64) (int64, error)
	// ListRegistrationsByAttendee includes the joined event.
	ListRegistrationsByAttendee(ctx context.Context, attendeeID int64) ([]models.Registration, error)
	// ListRegistrationsByEvent includes the joined attendee.
	ListRegistrationsByEvent(ctx context.Context, eventID int64) ([]models.Registration, error)
	ConfirmRegistration(ctx context.Context, id int64) error

	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedbackByEvent(ctx context.Context, eventID int64) ([]models.Feedback, error)

	CreateAuditLog(ctx context.Context, l *models.AuditLog) error
	// ListAuditLogs returns entries newest first.
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]models.AuditLog, error)

	// WithTx runs fn in a transaction. The Store passed to fn must be used for
	// every call that belongs to the transaction. A non-nil error from fn rolls
	// everything back. Nested calls run inside the outer transaction.
	WithTx(ctx context.Context, fn func(tx Store) error) error
}
