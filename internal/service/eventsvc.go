package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventportal/internal/auth"
	"eventportal/internal/domain"
)

// EventFormLayout is the value format of an HTML datetime-local input.
const EventFormLayout = "2006-01-02T15:04"

type EventsStore interface {
	CreateEvent(ctx context.Context, ne domain.NewEvent) (domain.Event, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	ListValidated(ctx context.Context, limit int) ([]domain.Event, error)
	ListByOrganizer(ctx context.Context, organizerID int64) ([]domain.Event, error)
	ListPending(ctx context.Context) ([]domain.Event, error)
	ListRegisteredEventIDs(ctx context.Context, participantID int64) (map[int64]bool, error)
	ValidateEvent(ctx context.Context, id int64, audit domain.AuditEntry) (domain.Event, error)
	RegisterParticipant(ctx context.Context, eventID, participantID int64) error
}

type EventNotifier interface {
	NotifyEventRegistration(ctx context.Context, eventID, participantID int64) bool
	NotifyEventValidation(ctx context.Context, eventID, organizerID int64) bool
}

type CreateEventInput struct {
	Title       string
	Description string
	Location    string
	StartsAt    string
}

type EventService struct {
	Events   EventsStore
	Users    NotificationUsersStore
	Notifier EventNotifier
	Location *time.Location
	Logger   *slog.Logger
	Now      func() time.Time
}

// Create is limited to verified organizers.
func (s *EventService) Create(ctx context.Context, sess *domain.Session, in CreateEventInput) (domain.Event, error) {
	if !auth.Authorize(sess, domain.RoleOrganizer) {
		return domain.Event{}, domain.ErrForbidden
	}
	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Event{}, domain.ErrUnauthorized
		}
		return domain.Event{}, err
	}
	if u.VerificationStatus != domain.VerificationVerified {
		return domain.Event{}, domain.ErrForbidden
	}

	title := strings.TrimSpace(in.Title)
	rawStart := strings.TrimSpace(in.StartsAt)
	if title == "" || rawStart == "" {
		return domain.Event{}, domain.ErrMissingField
	}
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	startsAt, err := time.ParseInLocation(EventFormLayout, rawStart, loc)
	if err != nil || !startsAt.After(s.now()) {
		return domain.Event{}, domain.ErrInvalidFormat
	}

	return s.Events.CreateEvent(ctx, domain.NewEvent{
		OrganizerID: u.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		StartsAt:    startsAt,
	})
}

func (s *EventService) ListOpen(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Events.ListValidated(ctx, limit)
}

func (s *EventService) ListForOrganizer(ctx context.Context, sess *domain.Session) ([]domain.Event, error) {
	if !auth.Authorize(sess, domain.RoleOrganizer) {
		return nil, domain.ErrForbidden
	}
	return s.Events.ListByOrganizer(ctx, sess.UserID)
}

func (s *EventService) ListPending(ctx context.Context, sess *domain.Session) ([]domain.Event, error) {
	if !auth.Authorize(sess, domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}
	return s.Events.ListPending(ctx)
}

func (s *EventService) RegisteredEventIDs(ctx context.Context, sess *domain.Session) (map[int64]bool, error) {
	if !auth.Authorize(sess, domain.RoleParticipant) {
		return nil, domain.ErrForbidden
	}
	return s.Events.ListRegisteredEventIDs(ctx, sess.UserID)
}

// Validate opens a pending event. The organizer notification is advisory and
// never undoes the validation.
func (s *EventService) Validate(ctx context.Context, sess *domain.Session, eventID int64, client ClientInfo) (domain.Event, error) {
	if !auth.Authorize(sess, domain.RoleAdmin) {
		return domain.Event{}, domain.ErrForbidden
	}
	adminID := sess.UserID
	ev, err := s.Events.ValidateEvent(ctx, eventID, domain.AuditEntry{
		UserID: &adminID,
		Action: domain.AuditEventValidated,
		Detail: fmt.Sprintf("event_id=%d", eventID),
		IP:     client.IP,
	})
	if err != nil {
		return domain.Event{}, err
	}
	if !s.Notifier.NotifyEventValidation(ctx, ev.ID, ev.OrganizerID) {
		s.logger().Warn("event validated without organizer notification", "event_id", ev.ID)
	}
	return ev, nil
}

func (s *EventService) Register(ctx context.Context, sess *domain.Session, eventID int64) error {
	if !auth.Authorize(sess, domain.RoleParticipant) {
		return domain.ErrForbidden
	}
	ev, err := s.Events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.Status != domain.EventValidated || !ev.StartsAt.After(s.now()) {
		return domain.ErrEventNotOpen
	}
	if err := s.Events.RegisterParticipant(ctx, ev.ID, sess.UserID); err != nil {
		return err
	}
	if !s.Notifier.NotifyEventRegistration(ctx, ev.ID, sess.UserID) {
		s.logger().Warn("registration stored without organizer notification", "event_id", ev.ID)
	}
	return nil
}

func (s *EventService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *EventService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
