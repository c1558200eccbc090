// Package sqlite provides a SQLite-backed implementation of the user and
// student stores, used for local development and tests.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/rosterly/rosterly/internal/migrate"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/repository"
)

// Scheme prefixes a DATABASE_URL that should be served by this package.
const Scheme = "sqlite:"

// SQLite's LOWER only folds ASCII. Name search lowercases the pattern with
// strings.ToLower, so the column side has to fold the same way.
const lowerFunc = "unicode_lower"

func init() {
	msqlite.MustRegisterDeterministicScalarFunction(lowerFunc, 1, unicodeLower)
}

func unicodeLower(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// Store persists users and students in SQLite.
type Store struct {
	db *sql.DB
}

// PathFromURL strips the sqlite scheme from a database URL.
// "sqlite::memory:" yields ":memory:".
func PathFromURL(databaseURL string) string {
	path := strings.TrimPrefix(databaseURL, Scheme)
	return strings.TrimPrefix(path, "//")
}

// Open opens the database at path and applies embedded migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}

	sep := "?"
	if strings.ContainsRune(path, '?') {
		sep = "&"
	}
	dsn := path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	if err := migrate.Up(ctx, db, migrate.SQLite, logger); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.Email, user.PasswordHash, toMillis(user.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrEmailExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.getUser(ctx, `SELECT id, email, password_hash, created_at FROM users WHERE email = ?`, email)
}

func (s *Store) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var (
		user      model.User
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.CreatedAt = fromMillis(createdAt)
	return &user, nil
}

// CreateStudent inserts a student and sets its generated ID.
func (s *Store) CreateStudent(ctx context.Context, student *model.Student) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO students (name, age, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		student.Name, student.Age, toMillis(student.CreatedAt), toMillis(student.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("read student id: %w", err)
	}
	student.ID = id
	return nil
}

// GetStudentByID retrieves a student by ID.
func (s *Store) GetStudentByID(ctx context.Context, id int64) (*model.Student, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, age, created_at, updated_at FROM students WHERE id = ?`, id)

	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrStudentNotFound
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return student, nil
}

// ListStudents returns one page of students matching filter, oldest first.
func (s *Store) ListStudents(ctx context.Context, filter model.StudentFilter, limit, offset int) ([]*model.Student, error) {
	where, args := studentWhere(filter)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, age, created_at, updated_at FROM students`+where+
			` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	students := make([]*model.Student, 0, limit)
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}
	return students, nil
}

// CountStudents counts students matching filter.
func (s *Store) CountStudents(ctx context.Context, filter model.StudentFilter) (int, error) {
	where, args := studentWhere(filter)

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return count, nil
}

// UpdateStudent overwrites a student's name and age.
func (s *Store) UpdateStudent(ctx context.Context, student *model.Student) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE students SET name = ?, age = ?, updated_at = ? WHERE id = ?`,
		student.Name, student.Age, toMillis(student.UpdatedAt), student.ID,
	)
	if err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return requireAffected(res)
}

// DeleteStudent permanently removes a student.
func (s *Store) DeleteStudent(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if n == 0 {
		return repository.ErrStudentNotFound
	}
	return nil
}

func studentWhere(filter model.StudentFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if filter.ID != 0 {
		clauses = append(clauses, "id = ?")
		args = append(args, filter.ID)
	}
	if filter.NameContains != "" {
		clauses = append(clauses, lowerFunc+`(name) LIKE ? ESCAPE '\'`)
		args = append(args, repository.LikePattern(filter.NameContains))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanStudent(row scanner) (*model.Student, error) {
	var (
		student              model.Student
		createdAt, updatedAt int64
	)
	if err := row.Scan(&student.ID, &student.Name, &student.Age, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	student.CreatedAt = fromMillis(createdAt)
	student.UpdatedAt = fromMillis(updatedAt)
	return &student, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
