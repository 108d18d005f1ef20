package webui

import (
	"net/http"

	"eventportal/internal/domain"
)

func (a *app) handleNotificationsPage(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	items := a.notificationsSvc.List(r.Context(), sess.UserID, 50)
	a.templates.render(w, a.logger, http.StatusOK, "notifications.html", notificationsViewData{
		page:  a.newPage(r, "Notifications"),
		Items: items,
	})
}

// A notification owned by someone else is silently left alone.
func (a *app) handleNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.renderError(w, r, domain.ErrNotFound)
		return
	}
	a.notificationsSvc.MarkRead(r.Context(), id, currentSession(r).UserID)
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}

func (a *app) handleNotificationsReadAll(w http.ResponseWriter, r *http.Request) {
	a.notificationsSvc.MarkAllRead(r.Context(), currentSession(r).UserID)
	http.Redirect(w, r, "/notifications", http.StatusSeeOther)
}
