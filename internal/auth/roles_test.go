package auth

import (
	"testing"

	"eventportal/internal/domain"
)

func TestDestinationFor(t *testing.T) {
	cases := map[domain.Role]string{
		domain.RoleAdmin:       "/admin/",
		domain.RoleOrganizer:   "/organizer/",
		domain.RoleParticipant: "/participant/",
	}
	for role, want := range cases {
		got, ok := DestinationFor(role)
		if !ok || got != want {
			t.Fatalf("DestinationFor(%s) = %q, %v; want %q", role, got, ok, want)
		}
	}

	if got, ok := DestinationFor(domain.Role("superuser")); ok || got != "" {
		t.Fatalf("unknown role must have no destination, got %q", got)
	}
}

func TestAuthorize(t *testing.T) {
	organizer := &domain.Session{ID: "s1", UserID: 3, Role: domain.RoleOrganizer}
	anonymous := &domain.Session{ID: "s2", Role: domain.RoleOrganizer}

	if !Authorize(organizer, domain.RoleOrganizer) {
		t.Fatalf("organizer must reach organizer pages")
	}
	cases := []struct {
		name string
		sess *domain.Session
		role domain.Role
	}{
		{name: "organizer as admin", sess: organizer, role: domain.RoleAdmin},
		{name: "organizer as participant", sess: organizer, role: domain.RoleParticipant},
		{name: "anonymous", sess: anonymous, role: domain.RoleOrganizer},
		{name: "no session", role: domain.RoleOrganizer},
	}
	for _, tc := range cases {
		if Authorize(tc.sess, tc.role) {
			t.Fatalf("%s: expected refusal", tc.name)
		}
	}
}
