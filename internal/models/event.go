package models

import "time"

// Event is a scheduled event owned by an organizer.
type Event struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Date        time.Time   `json:"date"`
	Location    string      `json:"location"`
	OrganizerID int64       `json:"organizerId"`
	Score       int         `json:"score"`
	CreatedAt   time.Time   `json:"createdAt"`
	Organizer   *UserPublic `json:"organizer,omitempty"`
}

// EventFields holds the mutable fields of an event; nil means unchanged.
type EventFields struct {
	Title       *string
	Description *string
	Date        *time.Time
	Location    *string
}

// Apply copies the non-nil fields onto e.
func (f EventFields) Apply(e *Event) {
	if f.Title != nil {
		e.Title = *f.Title
	}
	if f.Description != nil {
		e.Description = *f.Description
	}
	if f.Date != nil {
		e.Date = *f.Date
	}
	if f.Location != nil {
		e.Location = *f.Location
	}
}

// EventDetail is an event loaded with everything engagement scoring looks at.
type EventDetail struct {
	Event         Event
	Organizer     *User
	Registrations []Registration
	Feedback      []Feedback
}
