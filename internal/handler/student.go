package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/service"
	"github.com/rosterly/rosterly/internal/view"
)

const studentNotFoundMessage = "Student not found"

// StudentHandler handles HTTP requests for student records.
type StudentHandler struct {
	*Handler
	svc *service.StudentService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(base *Handler, svc *service.StudentService) *StudentHandler {
	return &StudentHandler{Handler: base, svc: svc}
}

// Index handles GET /students with optional q and page parameters.
func (h *StudentHandler) Index(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	result, err := h.svc.List(r.Context(), service.ListStudentsInput{
		Query: query.Get("q"),
		Page:  pageParam(query.Get("page")),
	})
	if err != nil {
		h.InternalError(w, r, err)
		return
	}

	if summary := result.Summary(); summary != nil {
		setFlash(r, summary.Severity, summary.Message)
	}

	h.render(w, r, http.StatusOK, view.StudentsIndex, "Students", result)
}

// Show handles GET /students/{id}.
func (h *StudentHandler) Show(w http.ResponseWriter, r *http.Request) {
	student, ok := h.loadStudent(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, view.StudentsShow, student.Name, student)
}

// New handles GET /students/new.
func (h *StudentHandler) New(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.StudentsNew, "New student", &view.StudentForm{Form: view.NewForm()})
}

// Create handles POST /students.
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := studentInput(r)

	student, err := h.svc.Create(r.Context(), in)
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			setFlash(r, model.SeverityError, "Failed to create student.")
			h.render(w, r, http.StatusUnprocessableEntity, view.StudentsNew, "New student",
				&view.StudentForm{Form: studentForm(in, verr)})
			return
		}
		h.InternalError(w, r, err)
		return
	}

	h.logger.Info("student_created",
		slog.Int64("student_id", student.ID),
	)

	redirectWithFlash(w, r, "/students", model.SeveritySuccess, "Student created successfully.")
}

// Edit handles GET /students/{id}/edit.
func (h *StudentHandler) Edit(w http.ResponseWriter, r *http.Request) {
	student, ok := h.loadStudent(w, r)
	if !ok {
		return
	}

	in := service.StudentInput{Name: student.Name, Age: strconv.Itoa(student.Age)}
	h.render(w, r, http.StatusOK, view.StudentsEdit, "Edit student",
		&view.StudentForm{ID: student.ID, Form: studentForm(in, nil)})
}

// Update handles POST /students/{id}.
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(r)
	if !ok {
		h.notFound(w, r, studentNotFoundMessage)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	in := studentInput(r)

	student, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrStudentNotFound):
			h.notFound(w, r, studentNotFoundMessage)
		case errors.As(err, &verr):
			setFlash(r, model.SeverityError, "Failed to update student.")
			h.render(w, r, http.StatusUnprocessableEntity, view.StudentsEdit, "Edit student",
				&view.StudentForm{ID: id, Form: studentForm(in, verr)})
		default:
			h.InternalError(w, r, err)
		}
		return
	}

	h.logger.Info("student_updated",
		slog.Int64("student_id", student.ID),
	)

	redirectWithFlash(w, r, "/students", model.SeveritySuccess, "Student updated successfully.")
}

// Delete handles POST /students/{id}/delete.
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseStudentID(r)
	if !ok {
		h.notFound(w, r, studentNotFoundMessage)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			h.notFound(w, r, studentNotFoundMessage)
			return
		}
		h.InternalError(w, r, err)
		return
	}

	h.logger.Info("student_deleted",
		slog.Int64("student_id", id),
	)

	redirectWithFlash(w, r, "/students", model.SeveritySuccess, "Record deleted.")
}

// loadStudent resolves the {id} route parameter, writing the 404 or 500
// page itself when it cannot.
func (h *StudentHandler) loadStudent(w http.ResponseWriter, r *http.Request) (*model.Student, bool) {
	id, ok := parseStudentID(r)
	if !ok {
		h.notFound(w, r, studentNotFoundMessage)
		return nil, false
	}

	student, err := h.svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrStudentNotFound) {
			h.notFound(w, r, studentNotFoundMessage)
		} else {
			h.InternalError(w, r, err)
		}
		return nil, false
	}
	return student, true
}

// parseStudentID accepts positive integer IDs only.
func parseStudentID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func studentInput(r *http.Request) service.StudentInput {
	return service.StudentInput{
		Name: r.PostFormValue("name"),
		Age:  r.PostFormValue("age"),
	}
}

func studentForm(in service.StudentInput, verr *service.ValidationError) *view.Form {
	form := view.NewForm().Set("name", in.Name).Set("age", in.Age)
	if verr != nil {
		for _, f := range verr.Fields {
			form.AddError(f.Field, f.Message)
		}
	}
	return form
}

// pageParam reads the leading integer of raw, so "2abc" is page 2. Anything
// without leading digits, or below 1, is the first page. Values too large
// for an int saturate and land past the last page.
func pageParam(raw string) int {
	raw = strings.TrimLeft(raw, " \t\n\v\f\r")
	digits := strings.TrimPrefix(raw, "+")
	end := 0
	for end < len(digits) && digits[end] >= '0' && digits[end] <= '9' {
		end++
	}
	if end == 0 {
		return 1
	}

	page, err := strconv.Atoi(digits[:end])
	if errors.Is(err, strconv.ErrRange) {
		return math.MaxInt
	}
	if err != nil || page < 1 {
		return 1
	}
	return page
}
