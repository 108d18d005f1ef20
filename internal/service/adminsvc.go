package service

import (
	"context"
	"log/slog"
	"strconv"

	"eventportal/internal/auth"
	"eventportal/internal/domain"
)

type AdminUsersStore interface {
	ListUsers(ctx context.Context, limit int) ([]domain.User, error)
	ListPendingOrganizers(ctx context.Context) ([]domain.User, error)
	VerifyOrganizer(ctx context.Context, userID int64, audit domain.AuditEntry) (domain.User, error)
}

type OrganizerNotifier interface {
	NotifyOrganizerVerified(ctx context.Context, organizerID, adminID int64) bool
}

type AdminDashboard struct {
	Users             []domain.User
	PendingOrganizers []domain.User
	RecentAudit       []domain.AuditEntry
}

type AdminService struct {
	Users    AdminUsersStore
	Audit    *AuditService
	Notifier OrganizerNotifier
	Logger   *slog.Logger
}

func (s *AdminService) Dashboard(ctx context.Context, sess *domain.Session) (AdminDashboard, error) {
	if !auth.Authorize(sess, domain.RoleAdmin) {
		return AdminDashboard{}, domain.ErrForbidden
	}

	users, err := s.Users.ListUsers(ctx, 100)
	if err != nil {
		return AdminDashboard{}, err
	}
	pending, err := s.Users.ListPendingOrganizers(ctx)
	if err != nil {
		return AdminDashboard{}, err
	}
	recent, err := s.Audit.Recent(ctx, 50)
	if err != nil {
		return AdminDashboard{}, err
	}
	return AdminDashboard{Users: users, PendingOrganizers: pending, RecentAudit: recent}, nil
}

// VerifyOrganizer approves a pending organizer and tells them so.
func (s *AdminService) VerifyOrganizer(ctx context.Context, sess *domain.Session, organizerID int64, client ClientInfo) (domain.User, error) {
	if !auth.Authorize(sess, domain.RoleAdmin) {
		return domain.User{}, domain.ErrForbidden
	}
	adminID := sess.UserID
	u, err := s.Users.VerifyOrganizer(ctx, organizerID, domain.AuditEntry{
		UserID: &adminID,
		Action: domain.AuditOrganizerVerified,
		Detail: "organizer_id=" + strconv.FormatInt(organizerID, 10),
		IP:     client.IP,
	})
	if err != nil {
		return domain.User{}, err
	}
	if !s.Notifier.NotifyOrganizerVerified(ctx, u.ID, adminID) {
		logger := s.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("organizer verified without notification", "user_id", u.ID)
	}
	return u, nil
}
