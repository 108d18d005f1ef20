package webui

import (
	"errors"
	"net/http"

	"eventportal/internal/domain"
)

type failure struct {
	target  error
	status  int
	message string
}

// Order matters: storage failures are checked first so a wrapped cause can
// never pick a user-facing message.
var failures = []failure{
	{domain.ErrStorageUnavailable, http.StatusServiceUnavailable, "The service is temporarily unavailable. Please try again later."},
	{domain.ErrMissingField, http.StatusBadRequest, "Please fill in all required fields."},
	{domain.ErrInvalidFormat, http.StatusBadRequest, "Please check the format of the values you entered."},
	{domain.ErrWeakPassword, http.StatusBadRequest, "The password must be at least 6 characters long."},
	{domain.ErrPasswordMismatch, http.StatusBadRequest, "The passwords do not match."},
	{domain.ErrDuplicateEmail, http.StatusConflict, "An account with this email already exists."},
	{domain.ErrInvalidRole, http.StatusBadRequest, "Please choose a valid account type."},
	{domain.ErrUnroutableDomain, http.StatusBadRequest, "This email domain cannot receive mail."},
	{domain.ErrNoSuchAccount, http.StatusUnauthorized, "No account exists for this email."},
	{domain.ErrNoPasswordSet, http.StatusUnauthorized, "This account has no password yet. Reset it to sign in."},
	{domain.ErrBadCredential, http.StatusUnauthorized, "Incorrect credentials."},
	{domain.ErrCSRFInvalid, http.StatusForbidden, "Your form expired. Please try again."},
	{domain.ErrBotChallengeFailed, http.StatusBadRequest, "The anti-bot check failed. Please try again."},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Please sign in to continue."},
	{domain.ErrForbidden, http.StatusForbidden, "You are not allowed to do that."},
	{domain.ErrAlreadyRegistered, http.StatusConflict, "You are already registered for this event."},
	{domain.ErrEventNotOpen, http.StatusConflict, "This event is not open for registration."},
	{domain.ErrNotFound, http.StatusNotFound, "The page or item you asked for does not exist."},
	{domain.ErrValidation, http.StatusBadRequest, "The request was invalid."},
}

const unexpectedMessage = "Something went wrong. Please try again later."

// describe maps err to its single user-visible message.
func describe(err error) (int, string) {
	for _, f := range failures {
		if errors.Is(err, f.target) {
			return f.status, f.message
		}
	}
	return http.StatusInternalServerError, unexpectedMessage
}

var notices = map[string]string{
	"registered":         "Your account was created. You can now sign in.",
	"password_reset":     "Your password was changed.",
	"logged_out":         "You have been signed out.",
	"welcome":            "Welcome back.",
	"event_created":      "Your event was submitted for validation.",
	"event_validated":    "The event is now open for registration.",
	"organizer_verified": "The organizer account is now verified.",
	"event_registered":   "You are registered for the event.",
}

func noticeFor(r *http.Request) string {
	return notices[r.URL.Query().Get("notice")]
}
