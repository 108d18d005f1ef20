package httpapi

import (
	"context"
	"net/http"
	"strings"

	"eventportal/internal/auth"
	"eventportal/internal/domain"
	"eventportal/internal/service"
)

type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	Role          string `json:"role,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
	Destination   string `json:"destination,omitempty"`
	CSRFToken     string `json:"csrf_token"`
}

// handleSession hands JSON clients their session cookie and CSRF token,
// starting an anonymous session when needed.
func (a *api) handleSession(w http.ResponseWriter, r *http.Request) {
	sessID, _ := a.cookieCodec.SessionIDFromRequest(r)
	sess, started, err := a.sessions.Resolve(r.Context(), sessID, clientInfo(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if started {
		auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionTTL, a.cookieSecure)
	}
	a.writeSession(w, r, &sess)
}

func (a *api) writeSession(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	token, err := a.csrf.Issue(r.Context(), sess)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := sessionResponse{Authenticated: sess.Authenticated(), CSRFToken: token}
	if resp.Authenticated {
		resp.Role = string(sess.Role)
		resp.DisplayName = sess.DisplayName
		resp.Destination, _ = auth.DestinationFor(sess.Role)
	}
	WriteJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *api) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	sess, err := a.authSvc.Login(r.Context(), currentSessionID(r.Context()), req.Email, req.Password, clientInfo(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.startAuthenticated(w, r, &sess)
}

type idTokenRequest struct {
	IDToken string `json:"id_token"`
}

func (a *api) handleAuthLoginGoogle(w http.ResponseWriter, r *http.Request) {
	a.handleIDTokenLogin(w, r, a.authSvc.LoginWithGoogle)
}

func (a *api) handleAuthLoginApple(w http.ResponseWriter, r *http.Request) {
	a.handleIDTokenLogin(w, r, a.authSvc.LoginWithApple)
}

type idTokenLogin func(ctx context.Context, previousID, idToken string, client service.ClientInfo) (domain.Session, error)

func (a *api) handleIDTokenLogin(w http.ResponseWriter, r *http.Request, login idTokenLogin) {
	var req idTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}
	token := strings.TrimSpace(req.IDToken)
	if token == "" {
		WriteDomainError(w, domain.ErrMissingField)
		return
	}

	sess, err := login(r.Context(), currentSessionID(r.Context()), token, clientInfo(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.startAuthenticated(w, r, &sess)
}

func (a *api) startAuthenticated(w http.ResponseWriter, r *http.Request, sess *domain.Session) {
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sess.ID), a.sessionTTL, a.cookieSecure)
	a.writeSession(w, r, sess)
}

// handleAuthLogout always answers 204. A missing, expired or revoked session
// is already logged out, so only the cookie is cleared.
func (a *api) handleAuthLogout(w http.ResponseWriter, r *http.Request) {
	if sessID, ok := a.cookieCodec.SessionIDFromRequest(r); ok {
		if sess, err := a.sessions.Get(r.Context(), sessID); err == nil {
			a.authSvc.Logout(r.Context(), &sess, clientInfo(r))
		}
	}
	auth.ClearSessionCookie(w, a.cookieSecure)
	w.WriteHeader(http.StatusNoContent)
}
