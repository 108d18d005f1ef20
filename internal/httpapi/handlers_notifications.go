package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"eventportal/internal/domain"
)

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
}

func (a *api) handleNotificationsList(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			WriteDomainError(w, domain.NewValidationError(map[string]string{"limit": "must be a positive integer"}))
			return
		}
		limit = n
	}

	items := a.notificationsSvc.List(r.Context(), sess.UserID, limit)
	WriteJSON(w, http.StatusOK, notificationsResponse{Notifications: items})
}

type unreadCountResponse struct {
	Count int `json:"count"`
}

func (a *api) handleNotificationsUnreadCount(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())
	WriteJSON(w, http.StatusOK, unreadCountResponse{Count: a.notificationsSvc.CountUnread(r.Context(), sess.UserID)})
}

type markReadResponse struct {
	Updated bool `json:"updated"`
}

func (a *api) handleNotificationsMarkRead(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		WriteDomainError(w, domain.ErrNotFound)
		return
	}
	WriteJSON(w, http.StatusOK, markReadResponse{Updated: a.notificationsSvc.MarkRead(r.Context(), id, sess.UserID)})
}

type markAllReadResponse struct {
	Updated int `json:"updated"`
}

func (a *api) handleNotificationsMarkAllRead(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())
	WriteJSON(w, http.StatusOK, markAllReadResponse{Updated: a.notificationsSvc.MarkAllRead(r.Context(), sess.UserID)})
}

type notificationTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type notificationTokenResponse struct {
	Token     string `json:"token"`
	Platform  string `json:"platform"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func (a *api) handleNotificationsTokenUpsert(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())

	var req notificationTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "bad_json", "invalid json")
		return
	}

	out, err := a.notificationsSvc.RegisterToken(r.Context(), sess.UserID, req.Token, req.Platform)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, notificationTokenResponse{
		Token:     out.Token,
		Platform:  out.Platform,
		CreatedAt: formatMillis(out.CreatedAt),
		UpdatedAt: formatMillis(out.UpdatedAt),
	})
}

func (a *api) handleNotificationsTokenDelete(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())

	if err := a.notificationsSvc.DeleteToken(r.Context(), sess.UserID, r.URL.Query().Get("token")); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func formatMillis(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
