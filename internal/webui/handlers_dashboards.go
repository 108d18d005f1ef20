package webui

import (
	"net/http"
	"strconv"

	"eventportal/internal/domain"
	"eventportal/internal/service"
)

const (
	adminTitle       = "Administration"
	organizerTitle   = "My events"
	participantTitle = "Events"
)

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

func (a *app) handleAdminHome(w http.ResponseWriter, r *http.Request) {
	a.renderAdmin(w, r, http.StatusOK, a.newPage(r, adminTitle))
}

func (a *app) renderAdmin(w http.ResponseWriter, r *http.Request, status int, p page) {
	sess := currentSession(r)
	dash, err := a.adminSvc.Dashboard(r.Context(), sess)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	pending, err := a.eventsSvc.ListPending(r.Context(), sess)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.templates.render(w, a.logger, status, "admin.html", adminViewData{page: p, Dashboard: dash, PendingEvents: pending})
}

func (a *app) handleAdminValidateEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.renderError(w, r, domain.ErrNotFound)
		return
	}
	if _, err := a.eventsSvc.Validate(r.Context(), currentSession(r), id, clientInfo(r)); err != nil {
		p, status := a.failPage(r, adminTitle, err)
		a.renderAdmin(w, r, status, p)
		return
	}
	http.Redirect(w, r, "/admin/?notice=event_validated", http.StatusSeeOther)
}

func (a *app) handleAdminVerifyOrganizer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.renderError(w, r, domain.ErrNotFound)
		return
	}
	if _, err := a.adminSvc.VerifyOrganizer(r.Context(), currentSession(r), id, clientInfo(r)); err != nil {
		p, status := a.failPage(r, adminTitle, err)
		a.renderAdmin(w, r, status, p)
		return
	}
	http.Redirect(w, r, "/admin/?notice=organizer_verified", http.StatusSeeOther)
}

func (a *app) handleOrganizerHome(w http.ResponseWriter, r *http.Request) {
	a.renderOrganizer(w, r, http.StatusOK, a.newPage(r, organizerTitle), service.CreateEventInput{})
}

func (a *app) renderOrganizer(w http.ResponseWriter, r *http.Request, status int, p page, form service.CreateEventInput) {
	sess := currentSession(r)
	verification, err := a.authSvc.VerificationStatus(r.Context(), sess)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	events, err := a.eventsSvc.ListForOrganizer(r.Context(), sess)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	a.templates.render(w, a.logger, status, "organizer.html", organizerViewData{
		page:     p,
		Verified: verification == domain.VerificationVerified,
		Events:   events,
		Form:     form,
	})
}

func (a *app) handleOrganizerCreateEvent(w http.ResponseWriter, r *http.Request) {
	in := service.CreateEventInput{
		Title:       r.PostFormValue("title"),
		Description: r.PostFormValue("description"),
		Location:    r.PostFormValue("location"),
		StartsAt:    r.PostFormValue("starts_at"),
	}
	if _, err := a.eventsSvc.Create(r.Context(), currentSession(r), in); err != nil {
		p, status := a.failPage(r, organizerTitle, err)
		a.renderOrganizer(w, r, status, p, in)
		return
	}
	http.Redirect(w, r, "/organizer/?notice=event_created", http.StatusSeeOther)
}

func (a *app) handleParticipantHome(w http.ResponseWriter, r *http.Request) {
	a.renderParticipant(w, r, http.StatusOK, a.newPage(r, participantTitle))
}

func (a *app) renderParticipant(w http.ResponseWriter, r *http.Request, status int, p page) {
	sess := currentSession(r)
	events, err := a.eventsSvc.ListOpen(r.Context(), 50)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	registered, err := a.eventsSvc.RegisteredEventIDs(r.Context(), sess)
	if err != nil {
		a.renderError(w, r, err)
		return
	}
	if registered == nil {
		registered = map[int64]bool{}
	}
	a.templates.render(w, a.logger, status, "participant.html", participantViewData{page: p, Events: events, Registered: registered})
}

func (a *app) handleParticipantRegister(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		a.renderError(w, r, domain.ErrNotFound)
		return
	}
	if err := a.eventsSvc.Register(r.Context(), currentSession(r), id); err != nil {
		p, status := a.failPage(r, participantTitle, err)
		a.renderParticipant(w, r, status, p)
		return
	}
	http.Redirect(w, r, "/participant/?notice=event_registered", http.StatusSeeOther)
}
