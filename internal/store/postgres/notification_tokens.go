package postgres

import (
	"context"
	"time"

	"eventportal/internal/domain"
)

type NotificationTokensStore struct {
	pool DB
}

func NewNotificationTokensStore(pool DB) *NotificationTokensStore {
	return &NotificationTokensStore{pool: pool}
}

// UpsertToken moves an already known device token to the current user.
func (s *NotificationTokensStore) UpsertToken(ctx context.Context, userID int64, token, platform string, when time.Time) (domain.NotificationToken, error) {
	const q = `
		INSERT INTO notification_tokens (user_id, token, platform, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT ON CONSTRAINT notification_tokens_token_uq
		DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			updated_at = EXCLUDED.updated_at
		RETURNING id, user_id, token, platform, created_at, updated_at
	`

	var t domain.NotificationToken
	err := s.pool.QueryRow(ctx, q, userID, token, platform, when).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.Platform,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.NotificationToken{}, domain.NewStorageError("notification_tokens.upsert", err)
	}
	return t, nil
}

func (s *NotificationTokensStore) DeleteToken(ctx context.Context, userID int64, token string) error {
	const q = `
		DELETE FROM notification_tokens
		WHERE user_id = $1 AND token = $2
	`
	if _, err := s.pool.Exec(ctx, q, userID, token); err != nil {
		return domain.NewStorageError("notification_tokens.delete", err)
	}
	return nil
}

// DeleteTokenAnyUser prunes a token the push provider reported as unregistered.
func (s *NotificationTokensStore) DeleteTokenAnyUser(ctx context.Context, token string) error {
	const q = `DELETE FROM notification_tokens WHERE token = $1`
	if _, err := s.pool.Exec(ctx, q, token); err != nil {
		return domain.NewStorageError("notification_tokens.prune", err)
	}
	return nil
}

func (s *NotificationTokensStore) ListTokens(ctx context.Context, userID int64) ([]domain.NotificationToken, error) {
	const q = `
		SELECT id, user_id, token, platform, created_at, updated_at
		FROM notification_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := s.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, domain.NewStorageError("notification_tokens.list", err)
	}
	defer rows.Close()

	var out []domain.NotificationToken
	for rows.Next() {
		var t domain.NotificationToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.Platform, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, domain.NewStorageError("notification_tokens.list", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("notification_tokens.list", err)
	}
	return out, nil
}
