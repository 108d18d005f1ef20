package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"

	"eventportal/internal/auth"
	"eventportal/internal/domain"
	"eventportal/internal/service"
)

type authCtxKey int

const authSessionKey authCtxKey = iota

// withSession loads the live session named by the cookie. Anonymous sessions
// are accepted.
func (a *api) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessID, ok := a.cookieCodec.SessionIDFromRequest(r)
		if !ok {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}

		sess, err := a.sessions.Get(r.Context(), sessID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), authSessionKey, &sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func (a *api) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return a.withSession(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := CurrentSession(r.Context())
		if !ok || !sess.Authenticated() {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireCSRF must run inside withSession or requireAuth.
func (a *api) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := CurrentSession(r.Context())
		if !auth.ValidCSRFToken(sess, r.Header.Get(auth.CSRFHeaderName)) {
			WriteDomainError(w, domain.ErrCSRFInvalid)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func CurrentSession(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(authSessionKey).(*domain.Session)
	return s, ok && s != nil
}

func currentSessionID(ctx context.Context) string {
	if s, ok := CurrentSession(ctx); ok {
		return s.ID
	}
	return ""
}

func clientInfo(r *http.Request) service.ClientInfo {
	return service.ClientInfo{IP: clientIP(r), UserAgent: r.UserAgent()}
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
