package handlers

import (
	"net/http"

	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/auth"
	"github.com/tecnotop/backend/cmd/svc/fieldboard/internal/www"
	"github.com/tecnotop/backend/libs/errors"
)

func (h *handlers) serveLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	next, valid := auth.ValidateRedirectURL(r.FormValue("next"))
	if !valid {
		next = "/"
	}

	if h.auth.Open() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	var errorMessage string
	if r.Method == "POST" {
		token, err := h.auth.LogIn(email, r.FormValue("password"))
		switch {
		case err == nil:
			http.SetCookie(w, auth.NewAuthCookie(token, r))
			http.Redirect(w, r, next, http.StatusSeeOther)
			return
		case errors.Is(err, auth.ErrBadCredentials):
			errorMessage = "E-mail ou senha incorretos."
		default:
			h.internalError(w, err)
			return
		}
	}

	www.TemplateResponse(w, http.StatusOK, www.LoginTemplate, &www.LoginContext{
		Error: errorMessage,
		Email: email,
		Next:  next,
	})
}

func (h *handlers) serveLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(auth.CookieName); err == nil {
		h.auth.LogOut(c.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *handlers) serveDashboardPage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	www.TemplateResponse(w, http.StatusOK, www.DashboardTemplate, &www.PageContext{Title: "Dashboard de Visitas"})
}

func (h *handlers) serveVisitsPage(w http.ResponseWriter, r *http.Request) {
	www.TemplateResponse(w, http.StatusOK, www.VisitsTemplate, &www.PageContext{Title: "Visitas"})
}

func (h *handlers) serveChatPage(w http.ResponseWriter, r *http.Request) {
	www.TemplateResponse(w, http.StatusOK, www.ChatTemplate, &www.PageContext{Title: "Assistente"})
}
