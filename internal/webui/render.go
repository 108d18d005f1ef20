package webui

import (
	"net"
	"net/http"
	"strings"

	"eventportal/internal/domain"
	"eventportal/internal/service"
)

func (a *app) newPage(r *http.Request, title string) page {
	sess := currentSession(r)
	p := page{Title: title, Session: sess, Notice: noticeFor(r)}
	if sess.ID != "" {
		token, err := a.csrf.Issue(r.Context(), sess)
		if err != nil {
			a.logger.Error("webui: issue csrf token failed", "err", err)
		}
		p.CSRFToken = token
	}
	if sess.Authenticated() && a.notificationsSvc != nil {
		p.Unread = a.notificationsSvc.CountUnread(r.Context(), sess.UserID)
	}
	return p
}

// failPage turns err into the single message shown on a re-rendered form.
func (a *app) failPage(r *http.Request, title string, err error) (page, int) {
	status, msg := describe(err)
	if !domain.IsUserFacing(err) {
		a.logger.Error("webui: request failed", "path", r.URL.Path, "err", err)
	}
	p := a.newPage(r, title)
	p.Notice = ""
	p.Error = msg
	return p, status
}

func (a *app) renderError(w http.ResponseWriter, r *http.Request, err error) {
	p, status := a.failPage(r, "", err)
	p.Title = http.StatusText(status)
	a.templates.render(w, a.logger, status, "error.html", p)
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
