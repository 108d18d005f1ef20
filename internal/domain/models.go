package domain

import "time"

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleOrganizer, RoleParticipant:
		return Role(s), true
	default:
		return "", false
	}
}

// Registerable reports whether accounts with this role may be created through
// self-service registration. Admins are bootstrapped out of band.
func (r Role) Registerable() bool {
	switch r {
	case RoleOrganizer, RoleParticipant:
		return true
	default:
		return false
	}
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
)

// InitialVerification is the status a freshly registered account starts with.
func InitialVerification(r Role) VerificationStatus {
	if r == RoleOrganizer {
		return VerificationPending
	}
	return VerificationVerified
}

type User struct {
	ID                 int64
	Name               string
	Email              string
	Role               Role
	EmailVerified      bool
	VerificationStatus VerificationStatus
	CreatedAt          time.Time
}

type UserWithPassword struct {
	User
	PasswordHash string
}

type NewUser struct {
	Name               string
	Email              string
	PasswordHash       string
	Role               Role
	VerificationStatus VerificationStatus
}

// Session is the server-side state behind the session cookie. UserID is zero
// for anonymous sessions.
type Session struct {
	ID          string
	UserID      int64
	Role        Role
	DisplayName string
	CSRFToken   string
	IP          string
	UserAgent   string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
}

func (s Session) Authenticated() bool { return s.ID != "" && s.UserID != 0 }

type NewSession struct {
	UserID      int64
	Role        Role
	DisplayName string
	IP          string
	UserAgent   string
	ExpiresAt   time.Time
}

type AuditAction string

const (
	AuditLogin             AuditAction = "login"
	AuditLogout            AuditAction = "logout"
	AuditRegister          AuditAction = "register"
	AuditPasswordReset     AuditAction = "password_reset"
	AuditOrganizerVerified AuditAction = "organizer_verified"
	AuditEventValidated    AuditAction = "event_validated"
)

type AuditEntry struct {
	ID        int64
	UserID    *int64
	Action    AuditAction
	Detail    string
	IP        string
	CreatedAt time.Time
}
