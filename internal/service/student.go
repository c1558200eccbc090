package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/repository"
)

// ErrStudentNotFound is returned when the requested student does not exist.
var ErrStudentNotFound = errors.New("student not found")

const (
	// DefaultPageSize is the number of students per list page.
	DefaultPageSize = 5
	// maxPage bounds the offset computation; later pages are simply empty.
	maxPage = 1 << 30
)

// StudentStore is the persistence the student service needs.
type StudentStore interface {
	CreateStudent(ctx context.Context, student *model.Student) error
	GetStudentByID(ctx context.Context, id int64) (*model.Student, error)
	ListStudents(ctx context.Context, filter model.StudentFilter, limit, offset int) ([]*model.Student, error)
	CountStudents(ctx context.Context, filter model.StudentFilter) (int, error)
	UpdateStudent(ctx context.Context, student *model.Student) error
	DeleteStudent(ctx context.Context, id int64) error
}

// StudentService handles student business logic.
type StudentService struct {
	store    StudentStore
	pageSize int
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewStudentService creates a new StudentService. A pageSize below 1 uses DefaultPageSize.
func NewStudentService(store StudentStore, pageSize int, recorder metrics.Recorder) *StudentService {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &StudentService{
		store:    store,
		pageSize: pageSize,
		metrics:  recorder,
		now:      time.Now,
	}
}

// ListStudentsInput defines input for listing students.
type ListStudentsInput struct {
	Query string
	Page  int
}

// StudentPage is one page of a (possibly filtered) student listing.
type StudentPage struct {
	Students   []*model.Student
	Query      string
	Page       int
	PageSize   int
	Total      int
	TotalPages int
}

// HasPrev reports whether an earlier page exists.
func (p *StudentPage) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a later page exists.
func (p *StudentPage) HasNext() bool {
	return p.Page < p.TotalPages
}

// PrevPage returns the previous page number.
func (p *StudentPage) PrevPage() int {
	return p.Page - 1
}

// NextPage returns the next page number.
func (p *StudentPage) NextPage() int {
	return p.Page + 1
}

// Summary returns the search feedback for the first page of a search, or
// nil when there is nothing to report.
func (p *StudentPage) Summary() *model.Flash {
	if p.Query == "" || p.Page != 1 {
		return nil
	}
	if p.Total == 0 {
		return &model.Flash{
			Severity: model.SeverityInfo,
			Message:  fmt.Sprintf(`No students found for "%s".`, p.Query),
		}
	}
	noun := "results"
	if p.Total == 1 {
		noun = "result"
	}
	return &model.Flash{
		Severity: model.SeveritySuccess,
		Message:  fmt.Sprintf(`Found %d %s for "%s".`, p.Total, noun, p.Query),
	}
}

// List returns the requested page. An all-digit query matches the student
// ID exactly; any other query matches names case-insensitively. Pages below
// 1 are treated as 1; pages past the end are empty.
func (s *StudentService) List(ctx context.Context, in ListStudentsInput) (*StudentPage, error) {
	page := in.Page
	if page < 1 {
		page = 1
	}
	query := strings.TrimSpace(in.Query)
	filter := model.ParseStudentQuery(query)
	if query != "" {
		s.metrics.IncStudentSearch()
	}

	total, err := s.store.CountStudents(ctx, filter)
	if err != nil {
		return nil, err
	}

	totalPages := (total + s.pageSize - 1) / s.pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	students := []*model.Student{}
	if page <= maxPage {
		students, err = s.store.ListStudents(ctx, filter, s.pageSize, (page-1)*s.pageSize)
		if err != nil {
			return nil, err
		}
	}

	return &StudentPage{
		Students:   students,
		Query:      query,
		Page:       page,
		PageSize:   s.pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// Get retrieves a student by ID.
func (s *StudentService) Get(ctx context.Context, id int64) (*model.Student, error) {
	student, err := s.store.GetStudentByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return student, nil
}

// Create validates the form and inserts a new student.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (*model.Student, error) {
	params, err := ValidateStudent(in)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	student := &model.Student{
		Name:      params.Name,
		Age:       params.Age,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateStudent(ctx, student); err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	s.metrics.IncStudentCreated()

	return student, nil
}

// Update validates the form and overwrites an existing student. A missing
// student is reported before any validation failure.
func (s *StudentService) Update(ctx context.Context, id int64, in StudentInput) (*model.Student, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	params, err := ValidateStudent(in)
	if err != nil {
		return nil, err
	}

	student.Name = params.Name
	student.Age = params.Age
	student.UpdatedAt = s.now().UTC()

	if err := s.store.UpdateStudent(ctx, student); err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to update student: %w", err)
	}

	s.metrics.IncStudentUpdated()

	return student, nil
}

// Delete permanently removes a student.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteStudent(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStudentNotFound) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to delete student: %w", err)
	}

	s.metrics.IncStudentDeleted()

	return nil
}

// Count returns the total number of students.
func (s *StudentService) Count(ctx context.Context) (int, error) {
	return s.store.CountStudents(ctx, model.StudentFilter{})
}
