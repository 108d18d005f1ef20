package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventportal/internal/auth"
	"eventportal/internal/service"
)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Sessions      *service.SessionService
	Auth          *service.AuthService
	Notifications *service.NotificationService
	CSRF          *auth.CSRFGuard
	CookieCodec   auth.CookieCodec
	CookieSecure  bool
	SessionTTL    time.Duration

	// Web serves every path outside /v1 and /healthz.
	Web http.Handler
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:           logger,
		isProd:           opts.IsProd,
		dbPing:           opts.DBPing,
		sessions:         opts.Sessions,
		authSvc:          opts.Auth,
		notificationsSvc: opts.Notifications,
		csrf:             opts.CSRF,
		cookieCodec:      opts.CookieCodec,
		cookieSecure:     opts.CookieSecure,
		sessionTTL:       opts.SessionTTL,
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)
	if opts.Web != nil {
		publicMux.Handle("/", opts.Web)
	}

	if api.sessions == nil || api.authSvc == nil {
		apiMux.HandleFunc("GET /v1/session", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/login", handleNotImplemented)
		apiMux.HandleFunc("POST /v1/auth/logout", handleNotImplemented)
		apiMux.HandleFunc("GET /v1/organizer/status", handleNotImplemented)
	} else {
		apiMux.HandleFunc("GET /v1/session", api.handleSession)
		apiMux.HandleFunc("POST /v1/auth/login", api.withSession(api.requireCSRF(api.handleAuthLogin)))
		apiMux.HandleFunc("POST /v1/auth/google", api.withSession(api.requireCSRF(api.handleAuthLoginGoogle)))
		apiMux.HandleFunc("POST /v1/auth/apple", api.withSession(api.requireCSRF(api.handleAuthLoginApple)))
		apiMux.HandleFunc("POST /v1/auth/logout", api.handleAuthLogout)
		apiMux.HandleFunc("GET /v1/organizer/status", api.requireAuth(api.handleOrganizerStatus))

		if api.notificationsSvc != nil {
			apiMux.HandleFunc("GET /v1/notifications", api.requireAuth(api.handleNotificationsList))
			apiMux.HandleFunc("GET /v1/notifications/unread-count", api.requireAuth(api.handleNotificationsUnreadCount))
			apiMux.HandleFunc("POST /v1/notifications/{id}/read", api.requireAuth(api.requireCSRF(api.handleNotificationsMarkRead)))
			apiMux.HandleFunc("POST /v1/notifications/read-all", api.requireAuth(api.requireCSRF(api.handleNotificationsMarkAllRead)))
			apiMux.HandleFunc("POST /v1/notifications/tokens", api.requireAuth(api.requireCSRF(api.handleNotificationsTokenUpsert)))
			apiMux.HandleFunc("DELETE /v1/notifications/tokens", api.requireAuth(api.requireCSRF(api.handleNotificationsTokenDelete)))
		}
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, pattern := apiMux.Handler(r)
		if pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	sessions         *service.SessionService
	authSvc          *service.AuthService
	notificationsSvc *service.NotificationService
	csrf             *auth.CSRFGuard
	cookieCodec      auth.CookieCodec
	cookieSecure     bool
	sessionTTL       time.Duration
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
