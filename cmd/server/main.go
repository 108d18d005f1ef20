package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"eventportal/internal/auth"
	"eventportal/internal/captcha"
	"eventportal/internal/config"
	"eventportal/internal/httpapi"
	"eventportal/internal/notifications"
	"eventportal/internal/service"
	"eventportal/internal/store/postgres"
	"eventportal/internal/webui"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	codec := auth.NewCookieCodec([]byte(cfg.CookieSecret))
	routerOpts := httpapi.RouterOpts{
		Logger:       logger,
		IsProd:       cfg.IsProd(),
		CookieCodec:  codec,
		CookieSecure: cfg.CookieSecure(),
		SessionTTL:   cfg.SessionTTL,
	}

	if cfg.DBDSN == "" {
		logger.Info("portal disabled: set APP_DB_DSN to serve pages and the v1 api")
	} else {
		pgPool, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			logger.Error("db open failed", "err", err)
			os.Exit(1)
		}
		defer pgPool.Close()

		if cfg.DBMigrate {
			if err := postgres.Migrate(ctx, pgPool); err != nil {
				logger.Error("db migrate failed", "err", err)
				os.Exit(1)
			}
		}

		users := postgres.NewUsersStore(pgPool)
		sessions := postgres.NewSessionsStore(pgPool)
		events := postgres.NewEventsStore(pgPool)
		auditLog := postgres.NewAuditStore(pgPool)
		notificationStore := postgres.NewNotificationsStore(pgPool)
		tokens := postgres.NewNotificationTokensStore(pgPool)

		if err := bootstrapAdminUser(ctx, logger, users, cfg); err != nil {
			logger.Error("bootstrap admin failed", "err", err)
			os.Exit(1)
		}

		auditSvc := &service.AuditService{Store: auditLog, Logger: logger}
		notificationsSvc := &service.NotificationService{
			Store:  notificationStore,
			Users:  users,
			Events: events,
			Tokens: tokens,
			Logger: logger,
		}
		if cfg.PushEnabled() {
			sender, err := notifications.NewFCMSender(ctx, cfg.FCMProjectID, cfg.FCMCredentials)
			if err != nil {
				logger.Error("fcm sender init failed", "err", err)
				os.Exit(1)
			}
			notificationsSvc.Sender = sender
			logger.Info("push notifications enabled", "project_id", cfg.FCMProjectID)
		}

		authSvc := &service.AuthService{
			Users:      users,
			Sessions:   sessions,
			Audit:      auditSvc,
			SessionTTL: cfg.SessionTTL,
			Logger:     logger,
		}
		if cfg.CheckMailDomain {
			authSvc.MailDomains = auth.MXChecker{}
		}
		if cfg.GoogleClientID != "" {
			authSvc.Google = auth.GoogleVerifier{ClientID: cfg.GoogleClientID}
		}
		if cfg.AppleServiceID != "" {
			authSvc.Apple = auth.AppleVerifier{ServiceID: cfg.AppleServiceID}
		}

		sessionSvc := &service.SessionService{Sessions: sessions, TTL: cfg.SessionTTL}
		eventsSvc := &service.EventService{
			Events:   events,
			Users:    users,
			Notifier: notificationsSvc,
			Logger:   logger,
		}
		adminSvc := &service.AdminService{
			Users:    users,
			Audit:    auditSvc,
			Notifier: notificationsSvc,
			Logger:   logger,
		}
		csrf := &auth.CSRFGuard{Store: sessions}

		var gate captcha.Gate
		switch cfg.CaptchaMode {
		case config.CaptchaRemote:
			gate = &captcha.RemoteGate{
				VerifyURL: cfg.CaptchaVerifyURL,
				SiteKey:   cfg.CaptchaSiteKey,
				Secret:    cfg.CaptchaSecret,
				Client:    &http.Client{Timeout: 5 * time.Second},
				Logger:    logger,
			}
		default:
			gate = &captcha.ArithmeticGate{Store: sessions, Logger: logger}
		}

		routerOpts.DBPing = pgPool.Ping
		routerOpts.Sessions = sessionSvc
		routerOpts.Auth = authSvc
		routerOpts.Notifications = notificationsSvc
		routerOpts.CSRF = csrf
		routerOpts.Web = webui.New(webui.Opts{
			Logger:            logger,
			Sessions:          sessionSvc,
			Auth:              authSvc,
			Events:            eventsSvc,
			Admin:             adminSvc,
			Notifications:     notificationsSvc,
			CSRF:              csrf,
			Captcha:           gate,
			CookieCodec:       codec,
			CookieSecure:      cfg.CookieSecure(),
			SessionTTL:        cfg.SessionTTL,
			OpenPasswordReset: cfg.OpenPasswordReset,
			GoogleEnabled:     authSvc.Google != nil,
			AppleEnabled:      authSvc.Apple != nil,
		})
		logger.Info("portal enabled",
			"captcha", cfg.CaptchaMode,
			"check_mail_domain", cfg.CheckMailDomain,
			"open_password_reset", cfg.OpenPasswordReset,
		)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewRouter(routerOpts),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "env", cfg.Env, "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}
}

func bootstrapAdminUser(ctx context.Context, logger *slog.Logger, users *postgres.UsersStore, cfg config.Config) error {
	if cfg.AdminBootstrapPassword == "" {
		return nil
	}
	if len(cfg.AdminBootstrapPassword) < 12 {
		return errors.New("APP_ADMIN_BOOTSTRAP_PASSWORD: must be at least 12 characters")
	}
	email := auth.NormalizeEmail(cfg.AdminBootstrapEmail)
	if !auth.ValidEmail(email) {
		return errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: invalid email")
	}

	hash, err := auth.HashPassword(cfg.AdminBootstrapPassword)
	if err != nil {
		return fmt.Errorf("admin bootstrap: hash password: %w", err)
	}

	created, err := users.EnsureAdmin(ctx, auth.NormalizeName(cfg.AdminBootstrapName), email, hash)
	if err != nil {
		return fmt.Errorf("admin bootstrap: %w", err)
	}
	if created {
		logger.Info("admin bootstrap: created admin user", "email", email)
	} else {
		logger.Info("admin bootstrap: user already exists", "email", email)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.IsProd() {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
