package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	"eventportal/internal/domain"
)

// AuditStore only ever inserts and reads audit rows.
type AuditStore struct {
	pool DB
}

func NewAuditStore(pool DB) *AuditStore {
	return &AuditStore{pool: pool}
}

func (s *AuditStore) Append(ctx context.Context, e domain.AuditEntry) error {
	if err := insertAuditEntry(ctx, s.pool, e); err != nil {
		return domain.NewStorageError("audit.append", err)
	}
	return nil
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	const q = `
		SELECT id, user_id, action, detail, ip, created_at
		FROM audit_log
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, domain.NewStorageError("audit.recent", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e      domain.AuditEntry
			userID pgtype.Int8
			ip     pgtype.Text
		)
		if err := rows.Scan(&e.ID, &userID, &e.Action, &e.Detail, &ip, &e.CreatedAt); err != nil {
			return nil, domain.NewStorageError("audit.recent", err)
		}
		e.UserID = int8Ptr(userID)
		e.IP = textOrEmpty(ip)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("audit.recent", err)
	}
	return out, nil
}

// insertAuditEntry lets transactional writes append their audit row on the
// same connection. created_at is always assigned by the database.
func insertAuditEntry(ctx context.Context, q querier, e domain.AuditEntry) error {
	const stmt = `
		INSERT INTO audit_log (user_id, action, detail, ip)
		VALUES ($1, $2, $3, $4)
	`
	_, err := q.Exec(ctx, stmt, int64PtrArg(e.UserID), string(e.Action), e.Detail, nullIfEmpty(e.IP))
	return err
}
