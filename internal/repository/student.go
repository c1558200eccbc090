package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/rosterly/rosterly/internal/model"
)

// ErrStudentNotFound is returned when no student has the requested ID.
var ErrStudentNotFound = errors.New("student not found")

const studentColumns = `id, name, age, created_at, updated_at`

// CreateStudent inserts a student and sets its generated ID.
func (r *Repository) CreateStudent(ctx context.Context, student *model.Student) error {
	query := `
		INSERT INTO students (name, age, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(ctx, query,
		student.Name,
		student.Age,
		student.CreatedAt,
		student.UpdatedAt,
	).Scan(&student.ID)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}

	return nil
}

// GetStudentByID retrieves a student by ID.
func (r *Repository) GetStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	query := `SELECT ` + studentColumns + ` FROM students WHERE id = $1`

	student, err := scanStudent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student by ID: %w", err)
	}

	return student, nil
}

// ListStudents returns one page of students matching filter, oldest first.
func (r *Repository) ListStudents(ctx context.Context, filter model.StudentFilter, limit, offset int) ([]*model.Student, error) {
	where, args := studentWhere(filter)
	query := fmt.Sprintf(
		`SELECT %s FROM students%s ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d`,
		studentColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	students := make([]*model.Student, 0, limit)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		students = append(students, student)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating students: %w", err)
	}

	return students, nil
}

// CountStudents counts students matching filter.
func (r *Repository) CountStudents(ctx context.Context, filter model.StudentFilter) (int, error) {
	where, args := studentWhere(filter)

	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}

	return count, nil
}

// UpdateStudent overwrites a student's name and age.
func (r *Repository) UpdateStudent(ctx context.Context, student *model.Student) error {
	query := `
		UPDATE students
		SET name = $2, age = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query,
		student.ID,
		student.Name,
		student.Age,
		student.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

// DeleteStudent permanently removes a student.
func (r *Repository) DeleteStudent(ctx context.Context, id int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete student: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrStudentNotFound
	}

	return nil
}

func studentWhere(filter model.StudentFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if filter.ID != 0 {
		args = append(args, filter.ID)
		clauses = append(clauses, fmt.Sprintf("id = $%d", len(args)))
	}
	if filter.NameContains != "" {
		args = append(args, LikePattern(filter.NameContains))
		clauses = append(clauses, fmt.Sprintf(`LOWER(name) LIKE $%d ESCAPE '\'`, len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanStudent(row pgx.Row) (*model.Student, error) {
	var student model.Student
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.Age,
		&student.CreatedAt,
		&student.UpdatedAt,
	)
	return &student, err
}
