package auth

import "eventportal/internal/domain"

const (
	AdminLanding       = "/admin/"
	OrganizerLanding   = "/organizer/"
	ParticipantLanding = "/participant/"
)

// DestinationFor maps a role to its landing page. An unknown role has no
// destination and must be treated as a data-integrity failure by the caller.
func DestinationFor(role domain.Role) (string, bool) {
	switch role {
	case domain.RoleAdmin:
		return AdminLanding, true
	case domain.RoleOrganizer:
		return OrganizerLanding, true
	case domain.RoleParticipant:
		return ParticipantLanding, true
	default:
		return "", false
	}
}

func Authorize(sess *domain.Session, required domain.Role) bool {
	if sess == nil || !sess.Authenticated() {
		return false
	}
	return sess.Role == required
}
