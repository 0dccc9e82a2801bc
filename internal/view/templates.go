package view

import (
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gadgetbay/gadgetbay/internal/rbac"
	"github.com/gadgetbay/gadgetbay/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// Flash is a one-shot notice shown above page content.
type Flash struct {
	Kind    string
	Message string
}

// NavLink is a sidebar entry shown when the viewer holds Permission.
type NavLink struct {
	Href       string
	Label      string
	Permission rbac.Permission
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *Flash
	CurrentPath string
	Actor       *rbac.Actor
	Nav         []NavLink
	Data        any
}

// VisibleNav filters links down to what actor may see.
func VisibleNav(actor rbac.Actor, links []NavLink) []NavLink {
	out := make([]NavLink, 0, len(links))
	for _, l := range links {
		if l.Permission == "" || rbac.HasPermission(actor.Role, l.Permission) {
			out = append(out, l)
		}
	}
	return out
}

// NewEngine parses templates at build-time.
func NewEngine() (*Engine, error) {
	funcMap := template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
		"roleName": func(r rbac.Role) string {
			return r.DisplayName()
		},
	}
	tpl, err := template.New("root").Funcs(funcMap).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes a named template with TemplateData.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return e.templates.ExecuteTemplate(w, name, data)
}

// RenderStatus writes status before executing the template.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return e.templates.ExecuteTemplate(w, name, data)
}
