package service

import (
	"context"
	"errors"
	"time"

	"eventportal/internal/domain"
)

// SessionService manages the anonymous sessions that carry CSRF tokens and
// captcha answers before sign-in.
type SessionService struct {
	Sessions SessionsStore
	TTL      time.Duration
	Now      func() time.Time
}

func (s *SessionService) Start(ctx context.Context, client ClientInfo) (domain.Session, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return s.Sessions.CreateSession(ctx, domain.NewSession{
		IP:        client.IP,
		UserAgent: client.UserAgent,
		ExpiresAt: now().Add(s.TTL),
	})
}

// Get returns a live session or ErrUnauthorized.
func (s *SessionService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	if sessionID == "" {
		return domain.Session{}, domain.ErrUnauthorized
	}
	sess, err := s.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Session{}, domain.ErrUnauthorized
		}
		return domain.Session{}, err
	}
	return sess, nil
}

// Resolve returns the live session for sessionID, starting a fresh anonymous
// one when it is missing or no longer valid. started reports the latter.
func (s *SessionService) Resolve(ctx context.Context, sessionID string, client ClientInfo) (sess domain.Session, started bool, err error) {
	sess, err = s.Get(ctx, sessionID)
	if err == nil {
		return sess, false, nil
	}
	if !errors.Is(err, domain.ErrUnauthorized) {
		return domain.Session{}, false, err
	}
	sess, err = s.Start(ctx, client)
	if err != nil {
		return domain.Session{}, false, err
	}
	return sess, true, nil
}
