package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"eventportal/internal/domain"
)

type SessionsStore struct {
	pool DB
}

func NewSessionsStore(pool DB) *SessionsStore {
	return &SessionsStore{pool: pool}
}

const sessionColumns = `id, user_id, role, display_name, csrf_token, ip, user_agent, created_at, expires_at, revoked_at`

func (s *SessionsStore) CreateSession(ctx context.Context, ns domain.NewSession) (domain.Session, error) {
	sess, err := insertSession(ctx, s.pool, ns)
	if err != nil {
		return domain.Session{}, domain.NewStorageError("sessions.create", err)
	}
	return sess, nil
}

func insertSession(ctx context.Context, q querier, ns domain.NewSession) (domain.Session, error) {
	const stmt = `
		INSERT INTO sessions (user_id, role, display_name, ip, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns

	return scanSession(q.QueryRow(ctx, stmt,
		nullIfZero(ns.UserID),
		nullIfEmpty(string(ns.Role)),
		ns.DisplayName,
		nullIfEmpty(ns.IP),
		nullIfEmpty(ns.UserAgent),
		ns.ExpiresAt,
	))
}

// GetSession returns a live session. Unknown, malformed, revoked and expired
// ids all report ErrNotFound.
func (s *SessionsStore) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return domain.Session{}, domain.ErrNotFound
	}

	const q = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND revoked_at IS NULL AND expires_at > now()
	`

	sess, err := scanSession(s.pool.QueryRow(ctx, q, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, domain.NewStorageError("sessions.get", err)
	}
	return sess, nil
}

// Authenticate revokes the previous (anonymous) session, opens an
// authenticated one and appends the login audit entry in one transaction.
func (s *SessionsStore) Authenticate(ctx context.Context, previousID string, ns domain.NewSession, audit domain.AuditEntry) (domain.Session, error) {
	var sess domain.Session
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, perr := uuid.Parse(previousID); perr == nil {
			const revoke = `UPDATE sessions SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`
			if _, err := tx.Exec(ctx, revoke, previousID); err != nil {
				return fmt.Errorf("revoke previous session: %w", err)
			}
		}

		var err error
		sess, err = insertSession(ctx, tx, ns)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}

		if err := insertAuditEntry(ctx, tx, audit); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Session{}, domain.NewStorageError("sessions.authenticate", err)
	}
	return sess, nil
}

func (s *SessionsStore) RevokeSession(ctx context.Context, sessionID string, when time.Time) error {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil
	}

	const q = `
		UPDATE sessions
		SET revoked_at = $2, csrf_token = NULL, captcha_answer = NULL
		WHERE id = $1 AND revoked_at IS NULL
	`

	_, err := s.pool.Exec(ctx, q, sessionID, when)
	if err != nil {
		return domain.NewStorageError("sessions.revoke", err)
	}
	return nil
}

func (s *SessionsStore) SetCSRFToken(ctx context.Context, sessionID, token string) error {
	const q = `UPDATE sessions SET csrf_token = $2 WHERE id = $1 AND revoked_at IS NULL`
	tag, err := s.pool.Exec(ctx, q, sessionID, token)
	if err != nil {
		return domain.NewStorageError("sessions.set_csrf_token", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *SessionsStore) SetCaptchaAnswer(ctx context.Context, sessionID string, answer int) error {
	const q = `UPDATE sessions SET captcha_answer = $2 WHERE id = $1 AND revoked_at IS NULL`
	tag, err := s.pool.Exec(ctx, q, sessionID, answer)
	if err != nil {
		return domain.NewStorageError("sessions.set_captcha_answer", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// TakeCaptchaAnswer reads and clears the stored answer in a single statement,
// so two concurrent submissions cannot both observe it.
func (s *SessionsStore) TakeCaptchaAnswer(ctx context.Context, sessionID string) (int, bool, error) {
	const q = `
		WITH prev AS (
			SELECT id, captcha_answer
			FROM sessions
			WHERE id = $1 AND revoked_at IS NULL AND expires_at > now()
			FOR UPDATE
		)
		UPDATE sessions s
		SET captcha_answer = NULL
		FROM prev
		WHERE s.id = prev.id
		RETURNING prev.captcha_answer
	`

	var answer pgtype.Int4
	err := s.pool.QueryRow(ctx, q, sessionID).Scan(&answer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, domain.NewStorageError("sessions.take_captcha_answer", err)
	}
	if !answer.Valid {
		return 0, false, nil
	}
	return int(answer.Int32), true, nil
}

func scanSession(row pgx.Row) (domain.Session, error) {
	var (
		sess      domain.Session
		idUUID    pgtype.UUID
		userID    pgtype.Int8
		role      pgtype.Text
		csrfToken pgtype.Text
		ip        pgtype.Text
		userAgent pgtype.Text
		revokedTS pgtype.Timestamptz
	)
	err := row.Scan(
		&idUUID,
		&userID,
		&role,
		&sess.DisplayName,
		&csrfToken,
		&ip,
		&userAgent,
		&sess.CreatedAt,
		&sess.ExpiresAt,
		&revokedTS,
	)
	if err != nil {
		return domain.Session{}, err
	}

	sess.ID = uuidOrEmpty(idUUID)
	sess.UserID = int8OrZero(userID)
	sess.Role = domain.Role(textOrEmpty(role))
	sess.CSRFToken = textOrEmpty(csrfToken)
	sess.IP = textOrEmpty(ip)
	sess.UserAgent = textOrEmpty(userAgent)
	sess.RevokedAt = timestamptzPtr(revokedTS)
	return sess, nil
}
