// Package view renders server-side HTML pages from embedded templates.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/rosterly/rosterly/internal/model"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page names.
const (
	StudentsIndex    = "students_index"
	StudentsNew      = "students_new"
	StudentsEdit     = "students_edit"
	StudentsShow     = "students_show"
	Signup           = "signup"
	Login            = "login"
	NotFound         = "not_found"
	MethodNotAllowed = "method_not_allowed"
	InternalError    = "internal_error"
)

var pageNames = []string{
	StudentsIndex, StudentsNew, StudentsEdit, StudentsShow,
	Signup, Login, NotFound, MethodNotAllowed, InternalError,
}

// Page is the data every template receives.
type Page struct {
	Title       string
	CurrentUser *model.User
	Flash       *model.Flash
	RequestID   string
	// Content is the page-specific view model.
	Content any
}

// Renderer writes a named page with the given status.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page *Page) error
}

// Templates renders the embedded page set. Each page is parsed together
// with the shared layout.
type Templates struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"formatTime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04")
	},
}

// New parses every page template.
func New() (*Templates, error) {
	t := &Templates{pages: make(map[string]*template.Template, len(pageNames))}
	for _, name := range pageNames {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// Render executes the page into a buffer first so a template failure never
// leaves a half-written response.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, page *Page) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("execute template %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// Form carries submitted values and per-field error messages back into a form.
type Form struct {
	Values map[string]string
	Errors map[string][]string
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{Values: map[string]string{}, Errors: map[string][]string{}}
}

// Set records a submitted value.
func (f *Form) Set(field, value string) *Form {
	f.Values[field] = value
	return f
}

// AddError attaches a message to field.
func (f *Form) AddError(field, message string) {
	f.Errors[field] = append(f.Errors[field], message)
}

// Get returns the submitted value for field.
func (f *Form) Get(field string) string {
	return f.Values[field]
}

// ErrorsFor returns the messages attached to field.
func (f *Form) ErrorsFor(field string) []string {
	return f.Errors[field]
}

// StudentForm is the view model for the new and edit pages.
type StudentForm struct {
	// ID is zero on the new page.
	ID   int64
	Form *Form
}

// ErrorPage is the view model for error pages.
type ErrorPage struct {
	Message string
	// Detail is only set in development.
	Detail string
}
