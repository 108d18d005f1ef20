package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"eventportal/internal/domain"
	"eventportal/internal/notifications"
)

const (
	defaultNotificationLimit = 20
	maxNotificationLimit     = 100
)

type NotificationsStore interface {
	CreateNotification(ctx context.Context, n domain.NewNotification) (domain.Notification, error)
	ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64, when time.Time) (bool, error)
	MarkAllRead(ctx context.Context, userID int64, when time.Time) (int64, error)
}

type NotificationTokensStore interface {
	UpsertToken(ctx context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error)
	DeleteToken(ctx context.Context, userID int64, token string) error
	DeleteTokenAnyUser(ctx context.Context, token string) error
	ListTokens(ctx context.Context, userID int64) ([]domain.NotificationToken, error)
}

type NotificationUsersStore interface {
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
}

type NotificationEventsStore interface {
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
}

type PushSender interface {
	Send(ctx context.Context, token string, msg notifications.Message) error
}

// NotificationService is fail-soft: storage failures are logged and turned
// into false or empty results so they never abort the action that triggered
// them.
type NotificationService struct {
	Store  NotificationsStore
	Users  NotificationUsersStore
	Events NotificationEventsStore

	// Tokens and Sender are optional; push delivery is skipped without them.
	Tokens NotificationTokensStore
	Sender PushSender

	Logger *slog.Logger
	Now    func() time.Time
}

func (s *NotificationService) Create(ctx context.Context, n domain.NewNotification) bool {
	n.Title = strings.TrimSpace(n.Title)
	n.Message = strings.TrimSpace(n.Message)
	if n.UserID <= 0 || !n.Type.Valid() || n.Title == "" {
		s.logger().Error("notifications: rejected malformed notification", "user_id", n.UserID, "type", n.Type)
		return false
	}

	created, err := s.Store.CreateNotification(ctx, n)
	if err != nil {
		s.logger().Error("notifications: create failed", "err", err, "user_id", n.UserID, "type", n.Type)
		return false
	}

	s.push(ctx, created)
	return true
}

func (s *NotificationService) List(ctx context.Context, userID int64, limit int) []domain.Notification {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	out, err := s.Store.ListNotifications(ctx, userID, limit)
	if err != nil {
		s.logger().Error("notifications: list failed", "err", err, "user_id", userID)
		return []domain.Notification{}
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out
}

func (s *NotificationService) CountUnread(ctx context.Context, userID int64) int {
	n, err := s.Store.CountUnread(ctx, userID)
	if err != nil {
		s.logger().Error("notifications: count unread failed", "err", err, "user_id", userID)
		return 0
	}
	return n
}

// MarkRead only affects a notification owned by userID.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID int64) bool {
	ok, err := s.Store.MarkRead(ctx, notificationID, userID, s.now())
	if err != nil {
		s.logger().Error("notifications: mark read failed", "err", err, "user_id", userID, "notification_id", notificationID)
		return false
	}
	return ok
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int64) int {
	n, err := s.Store.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		s.logger().Error("notifications: mark all read failed", "err", err, "user_id", userID)
		return 0
	}
	return int(n)
}

// NotifyEventRegistration tells the event's organizer that participantID
// registered. Nothing is created unless both lookups succeed.
func (s *NotificationService) NotifyEventRegistration(ctx context.Context, eventID, participantID int64) bool {
	ev, err := s.Events.GetEvent(ctx, eventID)
	if err != nil {
		s.logger().Error("notifications: event lookup failed", "err", err, "event_id", eventID)
		return false
	}
	participant, err := s.Users.GetUserByID(ctx, participantID)
	if err != nil {
		s.logger().Error("notifications: participant lookup failed", "err", err, "user_id", participantID)
		return false
	}

	from := participant.ID
	return s.Create(ctx, domain.NewNotification{
		UserID:     ev.OrganizerID,
		Type:       domain.NotificationInscription,
		Title:      "New registration",
		Message:    fmt.Sprintf("%s registered for %q.", participant.Name, ev.Title),
		FromUserID: &from,
	})
}

func (s *NotificationService) NotifyEventValidation(ctx context.Context, eventID, organizerID int64) bool {
	return s.Create(ctx, domain.NewNotification{
		UserID:  organizerID,
		Type:    domain.NotificationValidation,
		Title:   "Event validated",
		Message: fmt.Sprintf("Your event #%d has been validated and is now open for registration.", eventID),
	})
}

func (s *NotificationService) NotifyOrganizerVerified(ctx context.Context, organizerID, adminID int64) bool {
	from := adminID
	return s.Create(ctx, domain.NewNotification{
		UserID:     organizerID,
		Type:       domain.NotificationValidation,
		Title:      "Account verified",
		Message:    "Your organizer account has been verified. You can now publish events.",
		FromUserID: &from,
	})
}

func (s *NotificationService) RegisterToken(ctx context.Context, userID int64, token, platform string) (domain.NotificationToken, error) {
	if s.Tokens == nil {
		return domain.NotificationToken{}, errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	platform = strings.TrimSpace(strings.ToLower(platform))
	if token == "" || platform == "" {
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"token": "required", "platform": "required"})
	}
	switch platform {
	case "android", "ios":
	default:
		return domain.NotificationToken{}, domain.NewValidationError(map[string]string{"platform": "must be ios or android"})
	}
	when := s.now().UTC().Truncate(time.Millisecond)
	return s.Tokens.UpsertToken(ctx, userID, token, platform, when)
}

func (s *NotificationService) DeleteToken(ctx context.Context, userID int64, token string) error {
	if s.Tokens == nil {
		return errors.New("notifications unavailable")
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.NewValidationError(map[string]string{"token": "required"})
	}
	return s.Tokens.DeleteToken(ctx, userID, token)
}

// push mirrors a stored notification to the recipient's devices. Android gets
// data-only messages, iOS an alert.
func (s *NotificationService) push(ctx context.Context, n domain.Notification) {
	if s.Tokens == nil || s.Sender == nil {
		return
	}
	logger := s.logger()

	tokens, err := s.Tokens.ListTokens(ctx, n.UserID)
	if err != nil {
		logger.Error("notifications: list tokens failed", "err", err, "user_id", n.UserID)
		return
	}
	if len(tokens) == 0 {
		return
	}

	payload := map[string]string{
		"type":            string(n.Type),
		"notification_id": strconv.FormatInt(n.ID, 10),
		"title":           n.Title,
		"message":         n.Message,
	}
	dataOnlyMsg := notifications.Message{Data: payload}
	iosAlertMsg := notifications.Message{
		Data: payload,
		Notification: &notifications.Notification{
			Title: n.Title,
			Body:  n.Message,
		},
	}

	for _, token := range tokens {
		msg := dataOnlyMsg
		if strings.TrimSpace(strings.ToLower(token.Platform)) == "ios" {
			msg = iosAlertMsg
		}
		if err := s.Sender.Send(ctx, token.Token, msg); err != nil {
			if errors.Is(err, notifications.ErrInvalidToken) {
				if delErr := s.Tokens.DeleteTokenAnyUser(ctx, token.Token); delErr != nil {
					logger.Error("notifications: delete invalid token failed", "err", delErr, "user_id", n.UserID)
				}
				continue
			}
			logger.Error("notifications: send failed", "err", err, "user_id", n.UserID)
		}
	}
}

func (s *NotificationService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *NotificationService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
