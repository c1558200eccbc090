// Package handler provides HTTP request handlers.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/middleware"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/session"
	"github.com/rosterly/rosterly/internal/view"
)

// StudentCounter reports the total number of students.
type StudentCounter interface {
	Count(ctx context.Context) (int, error)
}

// Config holds the dependencies shared by every page handler.
type Config struct {
	Renderer view.Renderer
	Logger   *slog.Logger
	Students StudentCounter
	// ShowErrorDetail exposes internal error messages on the 500 page.
	ShowErrorDetail bool
}

// Handler renders pages and the uniform error responses.
type Handler struct {
	renderer        view.Renderer
	logger          *slog.Logger
	students        StudentCounter
	showErrorDetail bool
}

// New creates a new Handler instance.
func New(cfg Config) *Handler {
	return &Handler{
		renderer:        cfg.Renderer,
		logger:          cfg.Logger,
		students:        cfg.Students,
		showErrorDetail: cfg.ShowErrorDetail,
	}
}

// Root sends logged-in users to the roster and everyone else to login.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	if auth.IsLoggedIn(r.Context()) {
		http.Redirect(w, r, "/students", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

// DBTest reports the student count as plain text.
// GET /dbtest
func (h *Handler) DBTest(w http.ResponseWriter, r *http.Request) {
	count, err := h.students.Count(r.Context())
	if err != nil {
		h.InternalError(w, r, fmt.Errorf("count students: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "Students count: %d", count)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.notFound(w, r, "The page you were looking for doesn't exist.")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, message string) {
	h.render(w, r, http.StatusNotFound, view.NotFound, "Not found", &view.ErrorPage{Message: message})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusMethodNotAllowed, view.MethodNotAllowed, "Method not allowed",
		&view.ErrorPage{Message: r.Method + " is not supported for " + r.URL.Path + "."})
}

// InternalError logs err and renders the 500 page. Its signature matches the
// session and recoverer error hooks.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("internal error",
		slog.String("error", err.Error()),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("request_id", middleware.GetRequestID(r.Context())),
	)

	content := &view.ErrorPage{}
	if h.showErrorDetail {
		content.Detail = err.Error()
	}
	h.render(w, r, http.StatusInternalServerError, view.InternalError, "Error", content)
}

// render writes a full page. The pending flash, if any, is consumed here so
// it is shown exactly once.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name, title string, content any) {
	page := &view.Page{
		Title:       title,
		CurrentUser: auth.UserFromContext(r.Context()),
		Flash:       session.FromContext(r.Context()).PopFlash(),
		RequestID:   middleware.GetRequestID(r.Context()),
		Content:     content,
	}

	if err := h.renderer.Render(w, status, name, page); err != nil {
		h.logger.Error("render failed",
			slog.String("template", name),
			slog.String("error", err.Error()),
			slog.String("request_id", page.RequestID),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// redirectWithFlash stores a flash for the next page and redirects with 302.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, url string, severity model.Severity, message string) {
	session.FromContext(r.Context()).SetFlash(severity, message)
	http.Redirect(w, r, url, http.StatusFound)
}

// setFlash stores a flash that the page rendered by this request will show.
func setFlash(r *http.Request, severity model.Severity, message string) {
	session.FromContext(r.Context()).SetFlash(severity, message)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
