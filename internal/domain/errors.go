package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not_found")
	ErrMissingField       = errors.New("missing_field")
	ErrInvalidFormat      = errors.New("invalid_format")
	ErrWeakPassword       = errors.New("weak_password")
	ErrPasswordMismatch   = errors.New("password_mismatch")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrUnroutableDomain   = errors.New("unroutable_domain")
	ErrNoSuchAccount      = errors.New("no_such_account")
	ErrNoPasswordSet      = errors.New("no_password_set")
	ErrBadCredential      = errors.New("bad_credential")
	ErrCSRFInvalid        = errors.New("csrf_invalid")
	ErrBotChallengeFailed = errors.New("bot_challenge_failed")
	ErrStorageUnavailable = errors.New("storage_unavailable")
	ErrAlreadyRegistered  = errors.New("already_registered")
	ErrEventNotOpen       = errors.New("event_not_open")
	ErrValidation         = errors.New("validation")
)

// StorageError wraps an infrastructure failure. It matches ErrStorageUnavailable
// and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Op == "" {
		return "storage: " + e.Err.Error()
	}
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error { return []error{ErrStorageUnavailable, e.Err} }

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

var userFacing = []error{
	ErrUnauthorized,
	ErrForbidden,
	ErrNotFound,
	ErrMissingField,
	ErrInvalidFormat,
	ErrWeakPassword,
	ErrPasswordMismatch,
	ErrDuplicateEmail,
	ErrInvalidRole,
	ErrUnroutableDomain,
	ErrNoSuchAccount,
	ErrNoPasswordSet,
	ErrBadCredential,
	ErrCSRFInvalid,
	ErrBotChallengeFailed,
	ErrAlreadyRegistered,
	ErrEventNotOpen,
	ErrValidation,
}

// IsUserFacing reports whether err is a recoverable domain error that can be
// shown to the user as is. Storage failures are never user facing.
func IsUserFacing(err error) bool {
	if err == nil || errors.Is(err, ErrStorageUnavailable) {
		return false
	}
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(fields map[string]string) error {
	return &ValidationError{Fields: fields}
}
