// Package web renders the HTML pages and serves the static assets. Templates
// and assets are embedded in the binary.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/patric-chuzhbe/catfinder/internal/session"
	"github.com/patric-chuzhbe/catfinder/internal/user"
)

// Page names accepted by Renderer.Render.
const (
	PageIndex    = "index.html"
	PageCatInfo  = "cat_info.html"
	PageSignup   = "signup.html"
	PageLogin    = "login.html"
	PageEditUser = "edit_user.html"
	PageProfile  = "user_profile.html"
	PageSorry    = "sorry.html"
	PageError    = "error.html"
)

var pages = []string{
	PageIndex,
	PageCatInfo,
	PageSignup,
	PageLogin,
	PageEditUser,
	PageProfile,
	PageSorry,
	PageError,
}

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

// Page is the data every template receives. Data holds the page-specific part.
type Page struct {
	CurrentUser *user.User
	Flashes     []session.Flash
	Data        interface{}
}

// Renderer executes the page templates.
type Renderer struct {
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	"levels": func() []int { return []int{1, 2, 3, 4, 5} },
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: map[string]*template.Template{}}

	for _, page := range pages {
		tmpl, err := template.New(page).
			Funcs(funcs).
			ParseFS(templateFiles, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		r.templates[page] = tmpl
	}

	return r, nil
}

// Render writes the page with the given status. Nothing is written when the
// template fails.
func (r *Renderer) Render(w http.ResponseWriter, status int, page string, data Page) error {
	tmpl, ok := r.templates[page]
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		return fmt.Errorf("execute template %s: %w", page, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)

	return err
}

// StaticHandler serves the embedded assets. Mount it under /static/.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}

	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
