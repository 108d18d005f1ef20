package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"eventportal/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, errorEnvelope{Error: apiError{Code: code, Message: message}})
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteDomainError maps err to exactly one envelope. Anything that is not a
// recognised domain error is reported as an internal error without detail.
func WriteDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "storage_unavailable", "service temporarily unavailable")
	case errors.Is(err, domain.ErrValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrMissingField):
		WriteError(w, http.StatusBadRequest, "missing_field", "a required field is missing")
	case errors.Is(err, domain.ErrInvalidFormat):
		WriteError(w, http.StatusBadRequest, "invalid_format", "a field has an invalid format")
	case errors.Is(err, domain.ErrWeakPassword):
		WriteError(w, http.StatusBadRequest, "weak_password", "password is too short")
	case errors.Is(err, domain.ErrPasswordMismatch):
		WriteError(w, http.StatusBadRequest, "password_mismatch", "passwords do not match")
	case errors.Is(err, domain.ErrInvalidRole):
		WriteError(w, http.StatusBadRequest, "invalid_role", "invalid role")
	case errors.Is(err, domain.ErrUnroutableDomain):
		WriteError(w, http.StatusBadRequest, "unroutable_domain", "email domain cannot receive mail")
	case errors.Is(err, domain.ErrBotChallengeFailed):
		WriteError(w, http.StatusBadRequest, "bot_challenge_failed", "bot challenge failed")
	case errors.Is(err, domain.ErrDuplicateEmail):
		WriteError(w, http.StatusConflict, "email_taken", "email already taken")
	case errors.Is(err, domain.ErrNoSuchAccount):
		WriteError(w, http.StatusUnauthorized, "no_such_account", "no account for this email")
	case errors.Is(err, domain.ErrNoPasswordSet):
		WriteError(w, http.StatusUnauthorized, "no_password_set", "account has no password")
	case errors.Is(err, domain.ErrBadCredential):
		WriteError(w, http.StatusUnauthorized, "bad_credential", "invalid email or password")
	case errors.Is(err, domain.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
	case errors.Is(err, domain.ErrCSRFInvalid):
		WriteError(w, http.StatusForbidden, "csrf_invalid", "invalid csrf token")
	case errors.Is(err, domain.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "forbidden")
	case errors.Is(err, domain.ErrAlreadyRegistered):
		WriteError(w, http.StatusConflict, "already_registered", "already registered")
	case errors.Is(err, domain.ErrEventNotOpen):
		WriteError(w, http.StatusConflict, "event_not_open", "event is not open for registration")
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// writeError logs infrastructure failures before reporting them.
func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsUserFacing(err) {
		fields := []any{"path", r.URL.Path, "err", err}
		if rid, ok := GetRequestID(r.Context()); ok {
			fields = append(fields, "request_id", rid)
		}
		a.logger.Error("request failed", fields...)
	}
	WriteDomainError(w, err)
}
