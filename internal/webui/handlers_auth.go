package webui

import (
	"context"
	"net/http"
	"strings"

	"eventportal/internal/auth"
	"eventportal/internal/domain"
	"eventportal/internal/service"
)

const (
	loginTitle    = "Sign in"
	registerTitle = "Create an account"
	resetTitle    = "Reset password"
)

func (a *app) loginView(p page, email string) loginViewData {
	return loginViewData{
		page:          p,
		Email:         email,
		GoogleEnabled: a.googleEnabled,
		AppleEnabled:  a.appleEnabled,
		OpenReset:     a.openPasswordReset,
	}
}

func (a *app) handleLoginGet(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess.Authenticated() {
		a.landing(w, r, sess, "")
		return
	}
	a.templates.render(w, a.logger, http.StatusOK, "login.html", a.loginView(a.newPage(r, loginTitle), ""))
}

func (a *app) handleLoginPost(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	if !a.validCSRF(r) {
		a.renderLoginFailure(w, r, strings.TrimSpace(r.PostFormValue("email")), domain.ErrCSRFInvalid)
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	next, err := a.authSvc.Login(r.Context(), sess.ID, email, r.PostFormValue("password"), clientInfo(r))
	if err != nil {
		a.renderLoginFailure(w, r, email, err)
		return
	}
	a.setSessionCookie(w, next.ID)
	a.landing(w, r, &next, "welcome")
}

func (a *app) handleLoginGoogle(w http.ResponseWriter, r *http.Request) {
	a.handleIDTokenLogin(w, r, a.authSvc.LoginWithGoogle)
}

func (a *app) handleLoginApple(w http.ResponseWriter, r *http.Request) {
	a.handleIDTokenLogin(w, r, a.authSvc.LoginWithApple)
}

type idTokenLogin func(ctx context.Context, previousID, idToken string, client service.ClientInfo) (domain.Session, error)

func (a *app) handleIDTokenLogin(w http.ResponseWriter, r *http.Request, login idTokenLogin) {
	sess := currentSession(r)
	if !a.validCSRF(r) {
		a.renderLoginFailure(w, r, "", domain.ErrCSRFInvalid)
		return
	}

	next, err := login(r.Context(), sess.ID, r.PostFormValue("id_token"), clientInfo(r))
	if err != nil {
		a.renderLoginFailure(w, r, "", err)
		return
	}
	a.setSessionCookie(w, next.ID)
	a.landing(w, r, &next, "welcome")
}

func (a *app) renderLoginFailure(w http.ResponseWriter, r *http.Request, email string, err error) {
	p, status := a.failPage(r, loginTitle, err)
	a.templates.render(w, a.logger, status, "login.html", a.loginView(p, email))
}

func (a *app) handleRegisterGet(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess.Authenticated() {
		a.landing(w, r, sess, "")
		return
	}
	a.renderRegister(w, r, http.StatusOK, a.newPage(r, registerTitle), registerViewData{Role: string(domain.RoleParticipant)})
}

func (a *app) handleRegisterPost(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	csrfOK := a.validCSRF(r)

	in := service.RegisterInput{
		Name:     firstNonEmpty(r.PostFormValue("nom_complet"), r.PostFormValue("name")),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		Role:     r.PostFormValue("role"),
	}
	form := registerViewData{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Role:  strings.TrimSpace(in.Role),
	}

	fail := func(err error) {
		p, status := a.failPage(r, registerTitle, err)
		a.renderRegister(w, r, status, p, form)
	}

	if !csrfOK {
		fail(domain.ErrCSRFInvalid)
		return
	}
	response := firstNonEmpty(
		r.PostFormValue("captcha_answer"),
		r.PostFormValue("h-captcha-response"),
		r.PostFormValue("g-recaptcha-response"),
	)
	if !a.gate.Validate(r.Context(), sess, response, clientIP(r)) {
		fail(domain.ErrBotChallengeFailed)
		return
	}

	if _, err := a.authSvc.Register(r.Context(), in, clientInfo(r)); err != nil {
		fail(err)
		return
	}
	http.Redirect(w, r, "/login?notice=registered", http.StatusSeeOther)
}

// renderRegister always presents a fresh challenge: the previous one was
// consumed by the failed attempt.
func (a *app) renderRegister(w http.ResponseWriter, r *http.Request, status int, p page, form registerViewData) {
	form.page = p
	challenge, err := a.gate.Present(r.Context(), currentSession(r))
	if err != nil {
		a.logger.Error("webui: present challenge failed", "err", err)
		if form.Error == "" {
			_, form.Error = describe(err)
			status = http.StatusServiceUnavailable
		}
	}
	form.Challenge = challenge
	a.templates.render(w, a.logger, status, "register.html", form)
}

func (a *app) handleResetGet(w http.ResponseWriter, r *http.Request) {
	view, ok := a.resetView(w, r, a.newPage(r, resetTitle))
	if !ok {
		return
	}
	a.templates.render(w, a.logger, http.StatusOK, "reset.html", view)
}

func (a *app) handleResetPost(w http.ResponseWriter, r *http.Request) {
	sess := currentSession(r)
	csrfOK := a.validCSRF(r)

	view, ok := a.resetView(w, r, page{})
	if !ok {
		return
	}
	email := view.Email
	if !view.EmailLocked {
		email = strings.TrimSpace(r.PostFormValue("email"))
	}

	err := domain.ErrCSRFInvalid
	if csrfOK {
		err = a.authSvc.ResetPassword(r.Context(), email, r.PostFormValue("new_password"), r.PostFormValue("confirm_password"), clientInfo(r))
	}
	if err != nil {
		p, status := a.failPage(r, resetTitle, err)
		view.page = p
		view.Email = email
		a.templates.render(w, a.logger, status, "reset.html", view)
		return
	}

	if sess.Authenticated() {
		a.landing(w, r, sess, "password_reset")
		return
	}
	http.Redirect(w, r, "/login?notice=password_reset", http.StatusSeeOther)
}

// resetView decides who may reset what. Without the open reset only a
// signed-in user can change their own password.
func (a *app) resetView(w http.ResponseWriter, r *http.Request, p page) (resetViewData, bool) {
	sess := currentSession(r)
	if !sess.Authenticated() {
		if !a.openPasswordReset {
			http.Redirect(w, r, "/login", http.StatusFound)
			return resetViewData{}, false
		}
		return resetViewData{page: p}, true
	}

	u, err := a.authSvc.CurrentUser(r.Context(), sess)
	if err != nil {
		a.renderError(w, r, err)
		return resetViewData{}, false
	}
	return resetViewData{page: p, Email: u.Email, EmailLocked: true}, true
}

// Logout carries no CSRF token; the strict same-site cookie keeps it
// same-origin.
func (a *app) handleLogoutPost(w http.ResponseWriter, r *http.Request) {
	a.authSvc.Logout(r.Context(), currentSession(r), clientInfo(r))
	auth.ClearSessionCookie(w, a.cookieSecure)
	http.Redirect(w, r, "/login?notice=logged_out", http.StatusSeeOther)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
