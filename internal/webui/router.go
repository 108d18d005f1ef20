// Package webui serves the server-rendered forms and role dashboards.
package webui

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eventportal/internal/auth"
	"eventportal/internal/captcha"
	"eventportal/internal/domain"
	"eventportal/internal/service"
)

type Opts struct {
	Logger *slog.Logger

	Sessions      *service.SessionService
	Auth          *service.AuthService
	Events        *service.EventService
	Admin         *service.AdminService
	Notifications *service.NotificationService
	CSRF          *auth.CSRFGuard
	Captcha       captcha.Gate

	CookieCodec  auth.CookieCodec
	CookieSecure bool
	SessionTTL   time.Duration

	// OpenPasswordReset lets anonymous visitors reset any account's password
	// from its email alone.
	OpenPasswordReset bool
	GoogleEnabled     bool
	AppleEnabled      bool
}

func New(opts Opts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t, err := parseTemplates()
	if err != nil {
		logger.Error("webui: parse templates failed", "err", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "internal server error", http.StatusInternalServerError)
		})
	}

	app := &app{
		logger:            logger,
		sessions:          opts.Sessions,
		authSvc:           opts.Auth,
		eventsSvc:         opts.Events,
		adminSvc:          opts.Admin,
		notificationsSvc:  opts.Notifications,
		csrf:              opts.CSRF,
		gate:              opts.Captcha,
		cookieCodec:       opts.CookieCodec,
		cookieSecure:      opts.CookieSecure,
		sessionTTL:        opts.SessionTTL,
		openPasswordReset: opts.OpenPasswordReset,
		googleEnabled:     opts.GoogleEnabled,
		appleEnabled:      opts.AppleEnabled,
		templates:         t,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", app.handleRoot)
	mux.HandleFunc("GET /login", app.handleLoginGet)
	mux.HandleFunc("POST /login", app.handleLoginPost)
	mux.HandleFunc("POST /login/google", app.handleLoginGoogle)
	mux.HandleFunc("POST /login/apple", app.handleLoginApple)
	mux.HandleFunc("GET /register", app.handleRegisterGet)
	mux.HandleFunc("POST /register", app.handleRegisterPost)
	mux.HandleFunc("GET /reset", app.handleResetGet)
	mux.HandleFunc("POST /reset", app.handleResetPost)
	mux.HandleFunc("POST /logout", app.handleLogoutPost)

	mux.HandleFunc("GET /admin", redirectTo(auth.AdminLanding))
	mux.HandleFunc("GET /admin/{$}", app.requireRole(domain.RoleAdmin, app.handleAdminHome))
	mux.HandleFunc("POST /admin/events/{id}/validate", app.requireRole(domain.RoleAdmin, app.requireCSRF(app.handleAdminValidateEvent)))
	mux.HandleFunc("POST /admin/organizers/{id}/verify", app.requireRole(domain.RoleAdmin, app.requireCSRF(app.handleAdminVerifyOrganizer)))

	mux.HandleFunc("GET /organizer", redirectTo(auth.OrganizerLanding))
	mux.HandleFunc("GET /organizer/{$}", app.requireRole(domain.RoleOrganizer, app.handleOrganizerHome))
	mux.HandleFunc("POST /organizer/events", app.requireRole(domain.RoleOrganizer, app.requireCSRF(app.handleOrganizerCreateEvent)))

	mux.HandleFunc("GET /participant", redirectTo(auth.ParticipantLanding))
	mux.HandleFunc("GET /participant/{$}", app.requireRole(domain.RoleParticipant, app.handleParticipantHome))
	mux.HandleFunc("POST /participant/events/{id}/register", app.requireRole(domain.RoleParticipant, app.requireCSRF(app.handleParticipantRegister)))

	mux.HandleFunc("GET /notifications", app.requireAuth(app.handleNotificationsPage))
	mux.HandleFunc("POST /notifications/{id}/read", app.requireAuth(app.requireCSRF(app.handleNotificationRead)))
	mux.HandleFunc("POST /notifications/read-all", app.requireAuth(app.requireCSRF(app.handleNotificationsReadAll)))

	mux.HandleFunc("/", app.handleNotFound)

	return app.withSession(mux)
}

type app struct {
	logger *slog.Logger

	sessions         *service.SessionService
	authSvc          *service.AuthService
	eventsSvc        *service.EventService
	adminSvc         *service.AdminService
	notificationsSvc *service.NotificationService
	csrf             *auth.CSRFGuard
	gate             captcha.Gate

	cookieCodec  auth.CookieCodec
	cookieSecure bool
	sessionTTL   time.Duration

	openPasswordReset bool
	googleEnabled     bool
	appleEnabled      bool

	templates *templates
}

type ctxKey int

const sessionKey ctxKey = iota

// withSession attaches the visitor's session to the request, starting an
// anonymous one when the cookie is missing or stale.
func (a *app) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessID, _ := a.cookieCodec.SessionIDFromRequest(r)
		sess, started, err := a.sessions.Resolve(r.Context(), sessID, clientInfo(r))
		if err != nil {
			a.logger.Error("webui: resolve session failed", "err", err)
			a.renderError(w, r, err)
			return
		}
		if started {
			a.setSessionCookie(w, sess.ID)
		}
		ctx := context.WithValue(r.Context(), sessionKey, &sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentSession is never nil inside withSession.
func currentSession(r *http.Request) *domain.Session {
	if sess, ok := r.Context().Value(sessionKey).(*domain.Session); ok && sess != nil {
		return sess
	}
	return &domain.Session{}
}

func (a *app) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !currentSession(r).Authenticated() {
			http.Redirect(w, r, "/login", http.StatusFound)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (a *app) requireRole(role domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return a.requireAuth(func(w http.ResponseWriter, r *http.Request) {
		if !auth.Authorize(currentSession(r), role) {
			a.renderError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *app) requireCSRF(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.validCSRF(r) {
			a.renderError(w, r, domain.ErrCSRFInvalid)
			return
		}
		next.ServeHTTP(w, r)
	}
}

func (a *app) validCSRF(r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		return false
	}
	return a.csrf.Validate(currentSession(r), r.PostFormValue(auth.CSRFFormField))
}

func (a *app) setSessionCookie(w http.ResponseWriter, sessionID string) {
	auth.SetSessionCookie(w, a.cookieCodec.EncodeSessionID(sessionID), a.sessionTTL, a.cookieSecure)
}

// landing sends an authenticated session to its role's dashboard.
func (a *app) landing(w http.ResponseWriter, r *http.Request, sess *domain.Session, notice string) {
	dest, ok := auth.DestinationFor(sess.Role)
	if !ok {
		a.logger.Error("webui: session has unknown role", "role", sess.Role)
		a.renderError(w, r, domain.NewStorageError("session role", domain.ErrInvalidRole))
		return
	}
	if notice != "" {
		dest += "?notice=" + notice
	}
	http.Redirect(w, r, dest, http.StatusSeeOther)
}

func (a *app) handleRoot(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if !sess.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusFound)
		return
	}
	a.landing(w, r, sess, "")
}

func (a *app) handleNotFound(w http.ResponseWriter, r *http.Request) {
	a.renderError(w, r, domain.ErrNotFound)
}

func redirectTo(target string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	}
}
