package models

import "time"

// Registration links an attendee to an event.
type Registration struct {
	ID         int64       `json:"id"`
	AttendeeID int64       `json:"attendeeId"`
	EventID    int64       `json:"eventId"`
	Confirmed  bool        `json:"confirmed"`
	CreatedAt  time.Time   `json:"createdAt"`
	Event      *Event      `json:"event,omitempty"`
	Attendee   *UserPublic `json:"attendee,omitempty"`
}
