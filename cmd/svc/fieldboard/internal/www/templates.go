// Package www holds the dashboard's HTML templates.
package www

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/tecnotop/backend/libs/golog"
)

//go:embed templates/*.html
var templateFS embed.FS

var (
	LoginTemplate     = mustLoad("login.html")
	DashboardTemplate = mustLoad("dashboard.html")
	VisitsTemplate    = mustLoad("visits.html")
	ChatTemplate      = mustLoad("chat.html")
)

func mustLoad(name string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/base.html", "templates/"+name))
}

// LoginContext feeds the login page.
type LoginContext struct {
	Error string
	Email string
	Next  string
}

// PageContext feeds the authenticated pages.
type PageContext struct {
	Title string
}

// TemplateResponse renders t and reports template failures without
// leaking them to the client.
func TemplateResponse(w http.ResponseWriter, code int, t *template.Template, ctx interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := t.ExecuteTemplate(w, "base", ctx); err != nil {
		golog.Errorf("www: failed to render template: %s", err)
	}
}
