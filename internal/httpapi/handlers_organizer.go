package httpapi

import (
	"net/http"

	"eventportal/internal/domain"
)

type organizerStatusResponse struct {
	Verified bool   `json:"verified"`
	Status   string `json:"status"`
}

func (a *api) handleOrganizerStatus(w http.ResponseWriter, r *http.Request) {
	sess, _ := CurrentSession(r.Context())
	status, err := a.authSvc.VerificationStatus(r.Context(), sess)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, organizerStatusResponse{
		Verified: status == domain.VerificationVerified,
		Status:   string(status),
	})
}
