package models

import "time"

// Feedback is free-form attendee feedback on an event.
type Feedback struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"eventId"`
	AttendeeID int64     `json:"attendeeId"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}
