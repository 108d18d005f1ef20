package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	CaptchaMath   = "math"
	CaptchaRemote = "remote"
)

type Config struct {
	Env          string        `env:"APP_ENV" envDefault:"dev"`
	Addr         string        `env:"APP_ADDR" envDefault:"127.0.0.1:8080"`
	PublicURLRaw string        `env:"APP_PUBLIC_URL"`
	DBDSN        string        `env:"APP_DB_DSN"`
	DBMigrate    bool          `env:"APP_DB_MIGRATE" envDefault:"true"`
	CookieSecret string        `env:"APP_COOKIE_SECRET"`
	SessionTTL   time.Duration `env:"APP_SESSION_TTL" envDefault:"12h"`
	LogLevelRaw  string        `env:"APP_LOG_LEVEL" envDefault:"info"`

	AdminBootstrapEmail    string `env:"APP_ADMIN_BOOTSTRAP_EMAIL"`
	AdminBootstrapName     string `env:"APP_ADMIN_BOOTSTRAP_NAME"`
	AdminBootstrapPassword string `env:"APP_ADMIN_BOOTSTRAP_PASSWORD"`

	CaptchaMode      string `env:"APP_CAPTCHA_MODE" envDefault:"math"`
	CaptchaVerifyURL string `env:"APP_CAPTCHA_VERIFY_URL" envDefault:"https://api.hcaptcha.com/siteverify"`
	CaptchaSiteKey   string `env:"APP_CAPTCHA_SITE_KEY"`
	CaptchaSecret    string `env:"APP_CAPTCHA_SECRET"`

	CheckMailDomain   bool `env:"APP_CHECK_MAIL_DOMAIN" envDefault:"true"`
	OpenPasswordReset bool `env:"APP_OPEN_PASSWORD_RESET" envDefault:"false"`

	GoogleClientID string `env:"APP_GOOGLE_CLIENT_ID"`
	AppleServiceID string `env:"APP_APPLE_SERVICE_ID"`

	FCMProjectID   string `env:"APP_FCM_PROJECT_ID"`
	FCMCredentials string `env:"APP_FCM_CREDENTIALS"`

	PublicURL *url.URL   `env:"-"`
	LogLevel  slog.Level `env:"-"`
}

// Load reads an optional .env file from the working directory, then the
// process environment. Variables already set in the environment win.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return Parse(nil)
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// Parse builds a Config from environ, or from the process environment when
// environ is nil.
func Parse(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	switch c.Env {
	case "dev", "prod", "test":
	default:
		return errors.New("APP_ENV: must be one of dev, test, prod")
	}

	if c.PublicURLRaw != "" {
		parsed, err := url.Parse(c.PublicURLRaw)
		if err != nil {
			return fmt.Errorf("APP_PUBLIC_URL: %w", err)
		}
		if !parsed.IsAbs() || parsed.Host == "" {
			return errors.New("APP_PUBLIC_URL: must be an absolute URL")
		}
		switch parsed.Scheme {
		case "http", "https":
		default:
			return errors.New("APP_PUBLIC_URL: scheme must be http or https")
		}
		c.PublicURL = parsed
	}

	if c.SessionTTL <= 0 {
		return errors.New("APP_SESSION_TTL: must be > 0")
	}
	if err := c.LogLevel.UnmarshalText([]byte(c.LogLevelRaw)); err != nil {
		return fmt.Errorf("APP_LOG_LEVEL: %w", err)
	}

	c.AdminBootstrapEmail = strings.TrimSpace(strings.ToLower(c.AdminBootstrapEmail))
	c.AdminBootstrapName = strings.TrimSpace(c.AdminBootstrapName)
	if c.AdminBootstrapPassword != "" && c.AdminBootstrapEmail == "" {
		return errors.New("APP_ADMIN_BOOTSTRAP_EMAIL: required when APP_ADMIN_BOOTSTRAP_PASSWORD is set")
	}
	if c.AdminBootstrapPassword != "" && c.AdminBootstrapName == "" {
		c.AdminBootstrapName = "Administrator"
	}

	c.CaptchaMode = strings.ToLower(strings.TrimSpace(c.CaptchaMode))
	switch c.CaptchaMode {
	case CaptchaMath:
	case CaptchaRemote:
		if c.CaptchaSecret == "" || c.CaptchaSiteKey == "" {
			return errors.New("APP_CAPTCHA_SECRET and APP_CAPTCHA_SITE_KEY: required when APP_CAPTCHA_MODE=remote")
		}
	default:
		return errors.New("APP_CAPTCHA_MODE: must be math or remote")
	}

	if (c.FCMProjectID == "") != (c.FCMCredentials == "") {
		return errors.New("APP_FCM_PROJECT_ID and APP_FCM_CREDENTIALS: set both or neither")
	}

	if c.IsProd() {
		if c.PublicURL == nil {
			return errors.New("APP_PUBLIC_URL: required in prod")
		}
		if c.DBDSN == "" {
			return errors.New("APP_DB_DSN: required in prod")
		}
		if len(c.CookieSecret) < 32 {
			return errors.New("APP_COOKIE_SECRET: must be at least 32 bytes in prod")
		}
	}

	return nil
}

func (c Config) IsProd() bool { return c.Env == "prod" }

func (c Config) CookieSecure() bool {
	if c.PublicURL != nil {
		return c.PublicURL.Scheme == "https"
	}
	return c.IsProd()
}

func (c Config) PushEnabled() bool { return c.FCMProjectID != "" }
