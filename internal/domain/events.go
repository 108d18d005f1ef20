package domain

import "time"

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventValidated EventStatus = "validated"
)

type Event struct {
	ID          int64
	OrganizerID int64
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	Status      EventStatus
	CreatedAt   time.Time
	ValidatedAt *time.Time
}

type NewEvent struct {
	OrganizerID int64
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
}
