package model

import (
	"strconv"
	"strings"
	"time"
)

// Student represents a student record.
type Student struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Age       int       `json:"age"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StudentFilter narrows a student listing.
// A zero filter matches every student.
type StudentFilter struct {
	// ID, when non-zero, matches a single student exactly.
	ID int64
	// NameContains matches names case-insensitively.
	NameContains string
}

// IsZero reports whether the filter matches everything.
func (f StudentFilter) IsZero() bool {
	return f.ID == 0 && f.NameContains == ""
}

// ParseStudentQuery turns a free-text search box value into a filter.
// An all-digit query selects by ID, anything else is a name search.
func ParseStudentQuery(q string) StudentFilter {
	q = strings.TrimSpace(q)
	if q == "" {
		return StudentFilter{}
	}
	if isDigits(q) {
		id, err := strconv.ParseInt(q, 10, 64)
		if err != nil || id == 0 {
			// Out of range or zero: no row can have this ID.
			return StudentFilter{ID: -1}
		}
		return StudentFilter{ID: id}
	}
	return StudentFilter{NameContains: q}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
