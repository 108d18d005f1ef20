package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"eventportal/internal/domain"
)

type NotificationsStore struct {
	pool DB
}

func NewNotificationsStore(pool DB) *NotificationsStore {
	return &NotificationsStore{pool: pool}
}

const notificationColumns = `id, user_id, type, title, message, from_user_id, is_read, created_at, read_at`

func (s *NotificationsStore) CreateNotification(ctx context.Context, n domain.NewNotification) (domain.Notification, error) {
	const q = `
		INSERT INTO notifications (user_id, type, title, message, from_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + notificationColumns

	out, err := scanNotification(s.pool.QueryRow(ctx, q, n.UserID, string(n.Type), n.Title, n.Message, int64PtrArg(n.FromUserID)))
	if err != nil {
		return domain.Notification{}, domain.NewStorageError("notifications.create", err)
	}
	return out, nil
}

// ListNotifications returns the user's notifications, newest first.
func (s *NotificationsStore) ListNotifications(ctx context.Context, userID int64, limit int) ([]domain.Notification, error) {
	const q = `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, domain.NewStorageError("notifications.list", err)
	}
	defer rows.Close()

	out := make([]domain.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, domain.NewStorageError("notifications.list", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("notifications.list", err)
	}
	return out, nil
}

func (s *NotificationsStore) CountUnread(ctx context.Context, userID int64) (int, error) {
	const q = `SELECT count(*) FROM notifications WHERE user_id = $1 AND NOT is_read`
	var n int
	if err := s.pool.QueryRow(ctx, q, userID).Scan(&n); err != nil {
		return 0, domain.NewStorageError("notifications.count_unread", err)
	}
	return n, nil
}

// MarkRead is scoped by owner: it reports false only when the user owns no
// notification with that id. Re-marking keeps the first read_at.
func (s *NotificationsStore) MarkRead(ctx context.Context, id, userID int64, when time.Time) (bool, error) {
	const q = `
		UPDATE notifications
		SET is_read = true, read_at = COALESCE(read_at, $3)
		WHERE id = $1 AND user_id = $2
	`
	tag, err := s.pool.Exec(ctx, q, id, userID, when)
	if err != nil {
		return false, domain.NewStorageError("notifications.mark_read", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *NotificationsStore) MarkAllRead(ctx context.Context, userID int64, when time.Time) (int64, error) {
	const q = `
		UPDATE notifications
		SET is_read = true, read_at = $2
		WHERE user_id = $1 AND NOT is_read
	`
	tag, err := s.pool.Exec(ctx, q, userID, when)
	if err != nil {
		return 0, domain.NewStorageError("notifications.mark_all_read", err)
	}
	return tag.RowsAffected(), nil
}

func scanNotification(row pgx.Row) (domain.Notification, error) {
	var (
		n        domain.Notification
		fromUser pgtype.Int8
		readAt   pgtype.Timestamptz
	)
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&fromUser,
		&n.IsRead,
		&n.CreatedAt,
		&readAt,
	)
	if err != nil {
		return domain.Notification{}, err
	}
	n.FromUserID = int8Ptr(fromUser)
	n.ReadAt = timestamptzPtr(readAt)
	return n, nil
}
