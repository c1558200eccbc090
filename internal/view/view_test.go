package view

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/service"
)

func newTestTemplates(t *testing.T) *Templates {
	t.Helper()
	tmpl, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return tmpl
}

func render(t *testing.T, tmpl *Templates, status int, name string, page *Page) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	if err := tmpl.Render(rec, status, name, page); err != nil {
		t.Fatalf("Render(%s) failed: %v", name, err)
	}
	return rec
}

func TestRender_AllPages(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	student := &model.Student{ID: 7, Name: "Ann", Age: 21, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	list := &service.StudentPage{Students: []*model.Student{student}, Page: 1, PageSize: 5, Total: 1, TotalPages: 1}

	pages := map[string]any{
		StudentsIndex:    list,
		StudentsNew:      &StudentForm{Form: NewForm()},
		StudentsEdit:     &StudentForm{ID: 7, Form: NewForm().Set("name", "Ann").Set("age", "21")},
		StudentsShow:     student,
		Signup:           NewForm(),
		Login:            NewForm(),
		NotFound:         &ErrorPage{Message: "Student not found"},
		MethodNotAllowed: &ErrorPage{Message: "Method not allowed"},
		InternalError:    &ErrorPage{},
	}

	for name, content := range pages {
		rec := render(t, tmpl, http.StatusOK, name, &Page{Title: name, Content: content})
		if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
			t.Errorf("%s: Content-Type = %q", name, ct)
		}
		if !strings.Contains(rec.Body.String(), "</html>") {
			t.Errorf("%s: layout not rendered", name)
		}
	}
}

func TestRender_StatusAndFlash(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	rec := render(t, tmpl, http.StatusUnauthorized, Login, &Page{
		Flash:   &model.Flash{Severity: model.SeverityError, Message: "Invalid email or password"},
		Content: NewForm().Set("email", "ann@example.com"),
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="flash flash-error"`) || !strings.Contains(body, "Invalid email or password") {
		t.Errorf("flash missing from body: %s", body)
	}
	if !strings.Contains(body, `value="ann@example.com"`) {
		t.Errorf("entered email not kept: %s", body)
	}
}

func TestRender_EscapesUserInput(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	student := &model.Student{ID: 1, Name: `<script>alert("x")</script>`, Age: 3}
	rec := render(t, tmpl, http.StatusOK, StudentsShow, &Page{Content: student})

	body := rec.Body.String()
	if strings.Contains(body, "<script>alert") {
		t.Fatalf("student name rendered unescaped: %s", body)
	}
	if !strings.Contains(body, "&lt;script&gt;") {
		t.Errorf("expected escaped name in body")
	}
}

func TestRender_IndexPager(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	list := &service.StudentPage{Query: "a b", Page: 2, PageSize: 5, Total: 15, TotalPages: 3}
	body := render(t, tmpl, http.StatusOK, StudentsIndex, &Page{Content: list}).Body.String()

	for _, want := range []string{"Page 2 of 3", "page=1&q=a%20b", "page=3&q=a%20b", "No students to show."} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}
}

func TestRender_FormErrors(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	form := NewForm().Set("name", "Ann").Set("age", "abc")
	form.AddError("age", "Age is not a number")

	body := render(t, tmpl, http.StatusUnprocessableEntity, StudentsNew, &Page{Content: &StudentForm{Form: form}}).Body.String()
	if !strings.Contains(body, "Age is not a number") {
		t.Errorf("field error missing: %s", body)
	}
	if !strings.Contains(body, `action="/students"`) {
		t.Errorf("new form should post to /students")
	}
}

func TestRender_InternalErrorDetail(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	body := render(t, tmpl, http.StatusInternalServerError, InternalError, &Page{
		RequestID: "req-1",
		Content:   &ErrorPage{Detail: "db exploded"},
	}).Body.String()
	if !strings.Contains(body, "db exploded") || !strings.Contains(body, "req-1") {
		t.Errorf("detail or request id missing: %s", body)
	}

	body = render(t, tmpl, http.StatusInternalServerError, InternalError, &Page{}).Body.String()
	if strings.Contains(body, "<pre>") {
		t.Errorf("detail block rendered without detail: %s", body)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	t.Parallel()
	tmpl := newTestTemplates(t)

	rec := httptest.NewRecorder()
	if err := tmpl.Render(rec, http.StatusOK, "nope", &Page{}); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if rec.Body.Len() != 0 {
		t.Error("nothing should be written for an unknown template")
	}
}
