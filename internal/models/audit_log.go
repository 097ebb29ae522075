package models

import "time"

// AuditLog is an immutable record of an action taken by a user.
type AuditLog struct {
	ID        int64     `json:"id"`
	Action    string    `json:"action"`
	UserID    int64     `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
