package domain

import "time"

type NotificationType string

const (
	NotificationInscription NotificationType = "inscription"
	NotificationValidation  NotificationType = "validation"
	NotificationMessage     NotificationType = "message"
	NotificationWarning     NotificationType = "warning"
	NotificationInfo        NotificationType = "info"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationInscription, NotificationValidation, NotificationMessage, NotificationWarning, NotificationInfo:
		return true
	default:
		return false
	}
}

// Notification belongs to exactly one recipient. ReadAt is set iff IsRead.
type Notification struct {
	ID         int64            `json:"id"`
	UserID     int64            `json:"-"`
	Type       NotificationType `json:"type"`
	Title      string           `json:"title"`
	Message    string           `json:"message"`
	FromUserID *int64           `json:"from_user_id,omitempty"`
	IsRead     bool             `json:"is_read"`
	CreatedAt  time.Time        `json:"created_at"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
}

type NewNotification struct {
	UserID     int64
	Type       NotificationType
	Title      string
	Message    string
	FromUserID *int64
}

type NotificationToken struct {
	ID        int64     `json:"-"`
	UserID    int64     `json:"-"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
