package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"eventportal/internal/domain"
)

type UsersStore struct {
	pool DB
}

func NewUsersStore(pool DB) *UsersStore {
	return &UsersStore{pool: pool}
}

const userColumns = `id, name, email, role, email_verified, verification_status, created_at`

// CreateUser inserts the user, its role profile row and the audit entry in one
// transaction. The audit entry's UserID is filled with the new id.
func (s *UsersStore) CreateUser(ctx context.Context, nu domain.NewUser, audit domain.AuditEntry) (domain.User, error) {
	var u domain.User
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `
			INSERT INTO users (name, email, password_hash, role, verification_status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + userColumns

		err := tx.QueryRow(ctx, q, nu.Name, nu.Email, nullIfEmpty(nu.PasswordHash), string(nu.Role), string(nu.VerificationStatus)).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.Role,
			&u.EmailVerified,
			&u.VerificationStatus,
			&u.CreatedAt,
		)
		if err != nil {
			return mapUserWriteError(err)
		}

		if err := insertRoleProfile(ctx, tx, u); err != nil {
			return err
		}

		audit.UserID = &u.ID
		if err := insertAuditEntry(ctx, tx, audit); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return domain.User{}, err
		}
		return domain.User{}, domain.NewStorageError("users.create", err)
	}
	return u, nil
}

func insertRoleProfile(ctx context.Context, q querier, u domain.User) error {
	var stmt string
	switch u.Role {
	case domain.RoleOrganizer:
		stmt = `INSERT INTO organizer_profiles (user_id) VALUES ($1)`
	case domain.RoleParticipant:
		stmt = `INSERT INTO participant_profiles (user_id) VALUES ($1)`
	case domain.RoleAdmin:
		return nil
	default:
		return fmt.Errorf("insert role profile: unknown role %q", u.Role)
	}
	if _, err := q.Exec(ctx, stmt, u.ID); err != nil {
		return fmt.Errorf("insert role profile: %w", err)
	}
	return nil
}

func (s *UsersStore) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u domain.User
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.EmailVerified,
		&u.VerificationStatus,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, domain.NewStorageError("users.get_by_id", err)
	}
	return u, nil
}

func (s *UsersStore) GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error) {
	const q = `
		SELECT ` + userColumns + `, password_hash
		FROM users
		WHERE email = $1
	`

	var (
		u    domain.UserWithPassword
		hash pgtype.Text
	)
	err := s.pool.QueryRow(ctx, q, email).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.EmailVerified,
		&u.VerificationStatus,
		&u.CreatedAt,
		&hash,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserWithPassword{}, domain.ErrNotFound
		}
		return domain.UserWithPassword{}, domain.NewStorageError("users.get_by_email", err)
	}
	u.PasswordHash = textOrEmpty(hash)
	return u, nil
}

func (s *UsersStore) EmailExists(ctx context.Context, email string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`
	var exists bool
	if err := s.pool.QueryRow(ctx, q, email).Scan(&exists); err != nil {
		return false, domain.NewStorageError("users.email_exists", err)
	}
	return exists, nil
}

// UpdatePassword replaces the hash and appends the audit entry atomically.
func (s *UsersStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string, audit domain.AuditEntry) error {
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `UPDATE users SET password_hash = $2 WHERE id = $1`
		tag, err := tx.Exec(ctx, q, userID, passwordHash)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrNotFound
		}
		if err := insertAuditEntry(ctx, tx, audit); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewStorageError("users.update_password", err)
	}
	return nil
}

// VerifyOrganizer moves a pending organizer to verified. It reports
// ErrNotFound when no pending organizer has that id.
func (s *UsersStore) VerifyOrganizer(ctx context.Context, userID int64, audit domain.AuditEntry) (domain.User, error) {
	var u domain.User
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		const q = `
			UPDATE users
			SET verification_status = 'verified'
			WHERE id = $1 AND role = 'organizer' AND verification_status = 'pending'
			RETURNING ` + userColumns

		err := tx.QueryRow(ctx, q, userID).Scan(
			&u.ID,
			&u.Name,
			&u.Email,
			&u.Role,
			&u.EmailVerified,
			&u.VerificationStatus,
			&u.CreatedAt,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("verify organizer: %w", err)
		}
		if err := insertAuditEntry(ctx, tx, audit); err != nil {
			return fmt.Errorf("insert audit entry: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
		return domain.User{}, domain.NewStorageError("users.verify_organizer", err)
	}
	return u, nil
}

func (s *UsersStore) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const q = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	return s.listUsers(ctx, "users.list", q, limit)
}

func (s *UsersStore) ListPendingOrganizers(ctx context.Context) ([]domain.User, error) {
	const q = `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'organizer' AND verification_status = 'pending'
		ORDER BY created_at ASC, id ASC
	`
	return s.listUsers(ctx, "users.list_pending_organizers", q)
}

func (s *UsersStore) listUsers(ctx context.Context, op, q string, args ...any) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	var out []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.EmailVerified, &u.VerificationStatus, &u.CreatedAt); err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return out, nil
}

// EnsureAdmin creates the bootstrap admin unless an account already owns the
// email. An existing account is left untouched.
func (s *UsersStore) EnsureAdmin(ctx context.Context, name, email, passwordHash string) (created bool, err error) {
	const q = `
		INSERT INTO users (name, email, password_hash, role, email_verified, verification_status)
		VALUES ($1, $2, $3, 'admin', true, 'verified')
		ON CONFLICT ON CONSTRAINT users_email_uq DO NOTHING
	`
	tag, err := s.pool.Exec(ctx, q, name, email, passwordHash)
	if err != nil {
		return false, domain.NewStorageError("users.ensure_admin", err)
	}
	return tag.RowsAffected() == 1, nil
}

func mapUserWriteError(err error) error {
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) && pgerr.Code == "23505" {
		switch pgerr.ConstraintName {
		case "users_email_uq":
			return domain.ErrDuplicateEmail
		default:
			return fmt.Errorf("unique violation (%s): %w", pgerr.ConstraintName, err)
		}
	}
	return fmt.Errorf("create user: %w", err)
}
