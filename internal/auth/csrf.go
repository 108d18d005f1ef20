package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"eventportal/internal/domain"
)

const (
	CSRFFormField  = "csrf_token"
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32
)

type CSRFTokenStore interface {
	SetCSRFToken(ctx context.Context, sessionID, token string) error
}

// CSRFGuard issues one anti-forgery token per session and checks submitted
// forms against it.
type CSRFGuard struct {
	Store CSRFTokenStore
}

// Issue returns the session's token, creating and persisting one on first use.
// An existing token is never rotated.
func (g *CSRFGuard) Issue(ctx context.Context, sess *domain.Session) (string, error) {
	if sess == nil || sess.ID == "" {
		return "", errors.New("csrf: session required")
	}
	if sess.CSRFToken != "" {
		return sess.CSRFToken, nil
	}
	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	if err := g.Store.SetCSRFToken(ctx, sess.ID, token); err != nil {
		return "", fmt.Errorf("csrf: store token: %w", err)
	}
	sess.CSRFToken = token
	return token, nil
}

// Validate reports whether supplied matches the session's token.
func (g *CSRFGuard) Validate(sess *domain.Session, supplied string) bool {
	return ValidCSRFToken(sess, supplied)
}

func ValidCSRFToken(sess *domain.Session, supplied string) bool {
	if sess == nil || sess.CSRFToken == "" || supplied == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(supplied)) == 1
}

func newCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("csrf: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
