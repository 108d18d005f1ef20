package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"eventportal/internal/auth"
	"eventportal/internal/domain"
)

const minPasswordLen = 6

type UsersStore interface {
	CreateUser(ctx context.Context, nu domain.NewUser, audit domain.AuditEntry) (domain.User, error)
	GetUserByID(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.UserWithPassword, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string, audit domain.AuditEntry) error
}

type SessionsStore interface {
	CreateSession(ctx context.Context, ns domain.NewSession) (domain.Session, error)
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
	Authenticate(ctx context.Context, previousID string, ns domain.NewSession, audit domain.AuditEntry) (domain.Session, error)
	RevokeSession(ctx context.Context, sessionID string, when time.Time) error
}

type MailDomainChecker interface {
	HasMailExchanger(ctx context.Context, email string) (bool, error)
}

// ClientInfo identifies the requester for sessions and audit entries.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthService struct {
	Users    UsersStore
	Sessions SessionsStore
	Audit    *AuditService

	// MailDomains is optional; nil skips the UnroutableDomain check.
	MailDomains MailDomainChecker
	Google      auth.IDTokenVerifier
	Apple       auth.IDTokenVerifier

	SessionTTL time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Login checks the credentials and, on success, replaces previousID with a new
// authenticated session. Failed attempts never touch session state.
func (s *AuthService) Login(ctx context.Context, previousID, email, password string, client ClientInfo) (domain.Session, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return domain.Session{}, domain.ErrMissingField
	}
	if !auth.ValidEmail(email) {
		return domain.Session{}, domain.ErrInvalidFormat
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrNoSuchAccount
		}
		return domain.Session{}, err
	}
	if u.PasswordHash == "" {
		return domain.Session{}, domain.ErrNoPasswordSet
	}
	if !auth.VerifyPassword(u.PasswordHash, password) {
		return domain.Session{}, domain.ErrBadCredential
	}

	return s.establish(ctx, previousID, u.User, "password", client)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, previousID, idToken string, client ClientInfo) (domain.Session, error) {
	return s.loginWithIDToken(ctx, s.Google, previousID, idToken, client)
}

func (s *AuthService) LoginWithApple(ctx context.Context, previousID, idToken string, client ClientInfo) (domain.Session, error) {
	return s.loginWithIDToken(ctx, s.Apple, previousID, idToken, client)
}

// loginWithIDToken only signs in existing accounts: the role has to be chosen
// at registration.
func (s *AuthService) loginWithIDToken(ctx context.Context, verifier auth.IDTokenVerifier, previousID, idToken string, client ClientInfo) (domain.Session, error) {
	if verifier == nil {
		return domain.Session{}, domain.ErrForbidden
	}
	if strings.TrimSpace(idToken) == "" {
		return domain.Session{}, domain.ErrMissingField
	}

	claims, err := verifier.Verify(ctx, idToken)
	if err != nil {
		s.logger().Info("id token rejected", "err", err)
		return domain.Session{}, domain.ErrBadCredential
	}
	if claims.Email == "" || !claims.EmailVerified {
		return domain.Session{}, domain.ErrBadCredential
	}

	u, err := s.Users.GetUserByEmail(ctx, claims.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrNoSuchAccount
		}
		return domain.Session{}, err
	}

	return s.establish(ctx, previousID, u.User, string(claims.Provider), client)
}

func (s *AuthService) establish(ctx context.Context, previousID string, u domain.User, method string, client ClientInfo) (domain.Session, error) {
	if _, ok := auth.DestinationFor(u.Role); !ok {
		s.logger().Error("user has unknown role", "user_id", u.ID, "role", u.Role)
		return domain.Session{}, domain.NewStorageError("users.role", fmt.Errorf("unknown role %q", u.Role))
	}

	detail := "method=" + method
	if !u.EmailVerified {
		// Unverified addresses may still sign in; the event is only recorded.
		s.logger().Warn("login with unverified email", "user_id", u.ID)
		detail += " email_unverified"
	}

	userID := u.ID
	sess, err := s.Sessions.Authenticate(ctx, previousID, domain.NewSession{
		UserID:      u.ID,
		Role:        u.Role,
		DisplayName: u.Name,
		IP:          client.IP,
		UserAgent:   client.UserAgent,
		ExpiresAt:   s.now().Add(s.SessionTTL),
	}, domain.AuditEntry{
		UserID: &userID,
		Action: domain.AuditLogin,
		Detail: detail,
		IP:     client.IP,
	})
	if err != nil {
		return domain.Session{}, err
	}
	return sess, nil
}

// Logout revokes the session. It has no error conditions: failures are logged.
func (s *AuthService) Logout(ctx context.Context, sess *domain.Session, client ClientInfo) {
	if sess == nil || sess.ID == "" {
		return
	}
	if err := s.Sessions.RevokeSession(ctx, sess.ID, s.now()); err != nil {
		s.logger().Error("revoke session failed", "err", err)
	}
	if sess.Authenticated() {
		userID := sess.UserID
		s.Audit.Record(ctx, domain.AuditEntry{
			UserID: &userID,
			Action: domain.AuditLogout,
			IP:     client.IP,
		})
	}
	*sess = domain.Session{}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput, client ClientInfo) (domain.User, error) {
	name := auth.NormalizeName(in.Name)
	email := auth.NormalizeEmail(in.Email)
	roleRaw := strings.TrimSpace(strings.ToLower(in.Role))
	if name == "" || email == "" || in.Password == "" || roleRaw == "" {
		return domain.User{}, domain.ErrMissingField
	}

	if !auth.ValidEmail(email) {
		return domain.User{}, domain.ErrInvalidFormat
	}
	if s.MailDomains != nil {
		ok, err := s.MailDomains.HasMailExchanger(ctx, email)
		switch {
		case err != nil:
			// Resolver trouble is ours, not the user's.
			s.logger().Warn("mail domain lookup failed", "err", err)
		case !ok:
			return domain.User{}, domain.ErrUnroutableDomain
		}
	}

	if utf8.RuneCountInString(in.Password) < minPasswordLen {
		return domain.User{}, domain.ErrWeakPassword
	}

	role, ok := domain.ParseRole(roleRaw)
	if !ok || !role.Registerable() {
		return domain.User{}, domain.ErrInvalidRole
	}

	exists, err := s.Users.EmailExists(ctx, email)
	if err != nil {
		return domain.User{}, err
	}
	if exists {
		return domain.User{}, domain.ErrDuplicateEmail
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	// A concurrent registration that slipped past EmailExists is rejected by
	// the unique index and surfaces as ErrDuplicateEmail.
	return s.Users.CreateUser(ctx, domain.NewUser{
		Name:               name,
		Email:              email,
		PasswordHash:       hash,
		Role:               role,
		VerificationStatus: domain.InitialVerification(role),
	}, domain.AuditEntry{
		Action: domain.AuditRegister,
		Detail: "role=" + string(role),
		IP:     client.IP,
	})
}

// ResetPassword sets a new password from the email alone. Callers decide
// whether the requester may use it.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, confirm string, client ClientInfo) error {
	email = auth.NormalizeEmail(email)
	if email == "" || newPassword == "" || confirm == "" {
		return domain.ErrMissingField
	}
	if !auth.ValidEmail(email) {
		return domain.ErrInvalidFormat
	}
	if newPassword != confirm {
		return domain.ErrPasswordMismatch
	}
	if utf8.RuneCountInString(newPassword) < minPasswordLen {
		return domain.ErrWeakPassword
	}

	u, err := s.Users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoSuchAccount
		}
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID := u.ID
	err = s.Users.UpdatePassword(ctx, u.ID, hash, domain.AuditEntry{
		UserID: &userID,
		Action: domain.AuditPasswordReset,
		IP:     client.IP,
	})
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNoSuchAccount
	}
	return err
}

// CurrentUser loads the account behind an authenticated session.
func (s *AuthService) CurrentUser(ctx context.Context, sess *domain.Session) (domain.User, error) {
	if sess == nil || !sess.Authenticated() {
		return domain.User{}, domain.ErrUnauthorized
	}
	u, err := s.Users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnauthorized
		}
		return domain.User{}, err
	}
	return u, nil
}

// VerificationStatus is only answered for the organizer's own session.
func (s *AuthService) VerificationStatus(ctx context.Context, sess *domain.Session) (domain.VerificationStatus, error) {
	if sess == nil || !sess.Authenticated() {
		return "", domain.ErrUnauthorized
	}
	if !auth.Authorize(sess, domain.RoleOrganizer) {
		return "", domain.ErrForbidden
	}
	u, err := s.CurrentUser(ctx, sess)
	if err != nil {
		return "", err
	}
	return u.VerificationStatus, nil
}

func (s *AuthService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *AuthService) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
