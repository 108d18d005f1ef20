package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"

	"eventportal/internal/domain"
)

// sqlLog matches like the default regexp matcher and keeps every statement
// it accepted, whitespace collapsed.
type sqlLog struct {
	statements []string
}

func (l *sqlLog) Match(expectedSQL, actualSQL string) error {
	if err := pgxmock.QueryMatcherRegexp.Match(expectedSQL, actualSQL); err != nil {
		return err
	}
	l.statements = append(l.statements, strings.Join(strings.Fields(actualSQL), " "))
	return nil
}

func (l *sqlLog) last(t *testing.T) string {
	t.Helper()
	if len(l.statements) == 0 {
		t.Fatalf("no statement was executed")
	}
	return l.statements[len(l.statements)-1]
}

func newMockDB(t *testing.T) (pgxmock.PgxPoolIface, *sqlLog) {
	t.Helper()
	log := &sqlLog{}
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(log))
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock, log
}

func expectationsMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

var userRowColumns = []string{"id", "name", "email", "role", "email_verified", "verification_status", "created_at"}

func TestCreateUserMapsEmailConflict(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewUsersStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Ada", "ada@example.com", "hash", "participant", "verified").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_uq"})
	mock.ExpectRollback()

	_, err := store.CreateUser(context.Background(), domain.NewUser{
		Name:               "Ada",
		Email:              "ada@example.com",
		PasswordHash:       "hash",
		Role:               domain.RoleParticipant,
		VerificationStatus: domain.VerificationVerified,
	}, domain.AuditEntry{Action: domain.AuditRegister})

	if !errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
	if errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("duplicate email must not read as a storage failure")
	}
	expectationsMet(t, mock)
}

func TestCreateUserOtherUniqueViolationIsStorageError(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewUsersStore(mock)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_pkey"})
	mock.ExpectRollback()

	_, err := store.CreateUser(context.Background(), domain.NewUser{
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  domain.RoleParticipant,
	}, domain.AuditEntry{Action: domain.AuditRegister})

	if !errors.Is(err, domain.ErrStorageUnavailable) || errors.Is(err, domain.ErrDuplicateEmail) {
		t.Fatalf("expected storage error, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateUserRollsBackWhenProfileInsertFails(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewUsersStore(mock)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Grace", "grace@example.com", "hash", "organizer", "pending").
		WillReturnRows(mock.NewRows(userRowColumns).
			AddRow(int64(11), "Grace", "grace@example.com", domain.RoleOrganizer, false, domain.VerificationPending, created))
	mock.ExpectExec(`INSERT INTO organizer_profiles`).
		WithArgs(int64(11)).
		WillReturnError(errors.New("relation \"organizer_profiles\" does not exist"))
	mock.ExpectRollback()

	_, err := store.CreateUser(context.Background(), domain.NewUser{
		Name:               "Grace",
		Email:              "grace@example.com",
		PasswordHash:       "hash",
		Role:               domain.RoleOrganizer,
		VerificationStatus: domain.VerificationPending,
	}, domain.AuditEntry{Action: domain.AuditRegister})

	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestCreateUserWritesProfileAndAuditInOneTransaction(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewUsersStore(mock)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("Ada", "ada@example.com", "hash", "participant", "verified").
		WillReturnRows(mock.NewRows(userRowColumns).
			AddRow(int64(12), "Ada", "ada@example.com", domain.RoleParticipant, false, domain.VerificationVerified, created))
	mock.ExpectExec(`INSERT INTO participant_profiles`).
		WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(int64(12), "register", "role=participant", "203.0.113.9").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	u, err := store.CreateUser(context.Background(), domain.NewUser{
		Name:               "Ada",
		Email:              "ada@example.com",
		PasswordHash:       "hash",
		Role:               domain.RoleParticipant,
		VerificationStatus: domain.VerificationVerified,
	}, domain.AuditEntry{Action: domain.AuditRegister, Detail: "role=participant", IP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID != 12 || u.Role != domain.RoleParticipant || !u.CreatedAt.Equal(created) {
		t.Fatalf("unexpected user %+v", u)
	}
	expectationsMet(t, mock)
}

func TestUpdatePasswordUnknownUserRollsBack(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewUsersStore(mock)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(int64(404), "hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := store.UpdatePassword(context.Background(), 404, "hash", domain.AuditEntry{Action: domain.AuditPasswordReset})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestUpdatePasswordAuditFailureRollsBack(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewUsersStore(mock)
	userID := int64(7)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE users SET password_hash`).
		WithArgs(userID, "hash").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(userID, "password_reset", "", nil).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.UpdatePassword(context.Background(), userID, "hash", domain.AuditEntry{UserID: &userID, Action: domain.AuditPasswordReset})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
	expectationsMet(t, mock)
}

func TestMarkReadIsScopedByOwner(t *testing.T) {
	mock, log := newMockDB(t)
	store := NewNotificationsStore(mock)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(int64(5), int64(99), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	ok, err := store.MarkRead(context.Background(), 5, 99, now)
	if err != nil || ok {
		t.Fatalf("another user's notification must not be marked: %v %v", ok, err)
	}

	stmt := log.last(t)
	if !strings.Contains(stmt, "WHERE id = $1 AND user_id = $2") {
		t.Fatalf("update is not scoped by owner: %s", stmt)
	}
	expectationsMet(t, mock)
}

func TestMarkReadAlreadyReadStillMatches(t *testing.T) {
	mock, log := newMockDB(t)
	store := NewNotificationsStore(mock)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(int64(5), int64(3), now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`UPDATE notifications`).
		WithArgs(int64(5), int64(3), now.Add(time.Minute)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	for _, when := range []time.Time{now, now.Add(time.Minute)} {
		ok, err := store.MarkRead(context.Background(), 5, 3, when)
		if err != nil || !ok {
			t.Fatalf("owner's notification must report true: %v %v", ok, err)
		}
	}

	stmt := log.last(t)
	if strings.Contains(stmt, "NOT is_read") {
		t.Fatalf("re-marking a read notification must still match its row: %s", stmt)
	}
	if !strings.Contains(stmt, "read_at = COALESCE(read_at, $3)") {
		t.Fatalf("re-marking must keep the first read_at: %s", stmt)
	}
	expectationsMet(t, mock)
}

func TestTakeCaptchaAnswerClearsIt(t *testing.T) {
	mock, log := newMockDB(t)
	store := NewSessionsStore(mock)
	sessionID := uuid.NewString()

	mock.ExpectQuery(`SET captcha_answer = NULL`).
		WithArgs(sessionID).
		WillReturnRows(mock.NewRows([]string{"captcha_answer"}).AddRow(pgtype.Int4{Int32: 7, Valid: true}))
	mock.ExpectQuery(`SET captcha_answer = NULL`).
		WithArgs(sessionID).
		WillReturnRows(mock.NewRows([]string{"captcha_answer"}).AddRow(nil))

	answer, ok, err := store.TakeCaptchaAnswer(context.Background(), sessionID)
	if err != nil || !ok || answer != 7 {
		t.Fatalf("first take: %d %v %v", answer, ok, err)
	}
	answer, ok, err = store.TakeCaptchaAnswer(context.Background(), sessionID)
	if err != nil || ok || answer != 0 {
		t.Fatalf("replayed take must find nothing: %d %v %v", answer, ok, err)
	}

	stmt := log.last(t)
	if !strings.Contains(stmt, "revoked_at IS NULL AND expires_at > now()") {
		t.Fatalf("captcha answer must only come from a live session: %s", stmt)
	}
	expectationsMet(t, mock)
}

func TestTakeCaptchaAnswerMissingSession(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewSessionsStore(mock)
	sessionID := uuid.NewString()

	mock.ExpectQuery(`SET captcha_answer = NULL`).
		WithArgs(sessionID).
		WillReturnRows(mock.NewRows([]string{"captcha_answer"}))

	answer, ok, err := store.TakeCaptchaAnswer(context.Background(), sessionID)
	if err != nil || ok || answer != 0 {
		t.Fatalf("expired or unknown session must yield no answer: %d %v %v", answer, ok, err)
	}
	expectationsMet(t, mock)
}

func TestAuthenticateRotatesSessionWithAudit(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewSessionsStore(mock)
	previousID := uuid.NewString()
	newID := uuid.New()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	expires := created.Add(12 * time.Hour)
	userID := int64(7)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sessions SET revoked_at = now\(\)`).
		WithArgs(previousID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(userID, "participant", "Ada", "203.0.113.9", nil, expires).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "role", "display_name", "csrf_token", "ip", "user_agent", "created_at", "expires_at", "revoked_at"}).
			AddRow(
				pgtype.UUID{Bytes: newID, Valid: true},
				pgtype.Int8{Int64: userID, Valid: true},
				pgtype.Text{String: "participant", Valid: true},
				"Ada",
				pgtype.Text{},
				pgtype.Text{String: "203.0.113.9", Valid: true},
				pgtype.Text{},
				created,
				expires,
				pgtype.Timestamptz{},
			))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(userID, "login", "", "203.0.113.9").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	sess, err := store.Authenticate(context.Background(), previousID, domain.NewSession{
		UserID:      userID,
		Role:        domain.RoleParticipant,
		DisplayName: "Ada",
		IP:          "203.0.113.9",
		ExpiresAt:   expires,
	}, domain.AuditEntry{UserID: &userID, Action: domain.AuditLogin, IP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if sess.ID != newID.String() || sess.ID == previousID || sess.UserID != userID || sess.Role != domain.RoleParticipant {
		t.Fatalf("unexpected session %+v", sess)
	}
	if sess.RevokedAt != nil || sess.CSRFToken != "" {
		t.Fatalf("fresh session must be live and tokenless: %+v", sess)
	}
	expectationsMet(t, mock)
}

func TestAuthenticateAuditFailureRollsBack(t *testing.T) {
	mock, _ := newMockDB(t)
	store := NewSessionsStore(mock)
	userID := int64(7)
	expires := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO sessions`).
		WithArgs(userID, "participant", "Ada", nil, nil, expires).
		WillReturnRows(mock.NewRows([]string{"id", "user_id", "role", "display_name", "csrf_token", "ip", "user_agent", "created_at", "expires_at", "revoked_at"}).
			AddRow(
				pgtype.UUID{Bytes: uuid.New(), Valid: true},
				pgtype.Int8{Int64: userID, Valid: true},
				pgtype.Text{String: "participant", Valid: true},
				"Ada",
				pgtype.Text{},
				pgtype.Text{},
				pgtype.Text{},
				expires.Add(-12*time.Hour),
				expires,
				pgtype.Timestamptz{},
			))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(userID, "login", "", nil).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	// A malformed previous id skips the revoke statement.
	_, err := store.Authenticate(context.Background(), "not-a-uuid", domain.NewSession{
		UserID:      userID,
		Role:        domain.RoleParticipant,
		DisplayName: "Ada",
		ExpiresAt:   expires,
	}, domain.AuditEntry{UserID: &userID, Action: domain.AuditLogin})
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		t.Fatalf("expected storage error, got %v", err)
	}
	expectationsMet(t, mock)
}
