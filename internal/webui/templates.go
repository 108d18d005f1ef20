package webui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"eventportal/internal/captcha"
	"eventportal/internal/domain"
	"eventportal/internal/service"
)

//go:embed templates/*.html
var assets embed.FS

type templates struct {
	pages map[string]*template.Template
}

// page carries what the shared header needs.
type page struct {
	Title     string
	Session   *domain.Session
	CSRFToken string
	Unread    int
	Error     string
	Notice    string
}

type loginViewData struct {
	page
	Email         string
	GoogleEnabled bool
	AppleEnabled  bool
	OpenReset     bool
}

type registerViewData struct {
	page
	Name      string
	Email     string
	Role      string
	Challenge captcha.Challenge
}

type resetViewData struct {
	page
	Email       string
	EmailLocked bool
}

type adminViewData struct {
	page
	Dashboard     service.AdminDashboard
	PendingEvents []domain.Event
}

type organizerViewData struct {
	page
	Verified bool
	Events   []domain.Event
	Form     service.CreateEventInput
}

type participantViewData struct {
	page
	Events     []domain.Event
	Registered map[int64]bool
}

type notificationsViewData struct {
	page
	Items []domain.Notification
}

var pageFiles = []string{
	"login.html",
	"register.html",
	"reset.html",
	"admin.html",
	"organizer.html",
	"participant.html",
	"notifications.html",
	"error.html",
}

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
	"deref": func(p *int64) int64 {
		if p == nil {
			return 0
		}
		return *p
	},
}

func parseTemplates() (*templates, error) {
	out := &templates{pages: make(map[string]*template.Template, len(pageFiles))}
	for _, name := range pageFiles {
		t, err := template.New("base").Funcs(funcs).ParseFS(assets, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		out.pages[name] = t
	}
	return out, nil
}

func (t *templates) render(w http.ResponseWriter, logger *slog.Logger, status int, name string, data any) {
	tmpl, ok := t.pages[name]
	if !ok {
		logger.Error("webui: unknown template", "name", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("webui: render failed", "name", name, "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
