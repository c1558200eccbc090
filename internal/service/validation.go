// Package service provides business logic for the application.
package service

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// FieldError is one user-facing validation failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists every constraint the input violated.
type ValidationError struct {
	Fields []FieldError
}

// Error joins all messages in field order.
func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), ", ")
}

// Messages returns the messages in the order they were found.
func (e *ValidationError) Messages() []string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return msgs
}

// For returns the messages attached to field.
func (e *ValidationError) For(field string) []string {
	var msgs []string
	for _, f := range e.Fields {
		if f.Field == field {
			msgs = append(msgs, f.Message)
		}
	}
	return msgs
}

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// letterdigit: letters and digits only, with at least one of each.
	_ = v.RegisterValidation("letterdigit", func(fl validator.FieldLevel) bool {
		var letter, digit bool
		for _, r := range fl.Field().String() {
			switch {
			case r <= unicode.MaxASCII && unicode.IsLetter(r):
				letter = true
			case r >= '0' && r <= '9':
				digit = true
			default:
				return false
			}
		}
		return letter && digit
	})
	return v
}

// rule pairs a validator tag with the message shown when it fails.
type rule struct {
	tag     string
	message string
}

// collector accumulates field errors across several checks.
type collector struct {
	fields []FieldError
}

func (c *collector) add(field, message string) {
	c.fields = append(c.fields, FieldError{Field: field, Message: message})
}

// check runs every rule against value and records each failure.
func (c *collector) check(field string, value any, rules ...rule) {
	for _, r := range rules {
		if err := validate.Var(value, r.tag); err != nil {
			c.add(field, r.message)
		}
	}
}

func (c *collector) has(field string) bool {
	for _, f := range c.fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// err returns nil when nothing failed.
func (c *collector) err() error {
	if len(c.fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: c.fields}
}

// SignupInput is the raw signup form.
type SignupInput struct {
	Email                string
	Password             string
	PasswordConfirmation string
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateSignup checks the signup form. Email uniqueness needs the store
// and is checked by AuthService.
func ValidateSignup(in SignupInput) error {
	var c collector
	validateSignup(&c, in)
	return c.err()
}

func validateSignup(c *collector, in SignupInput) {
	email := NormalizeEmail(in.Email)
	if email == "" {
		c.add("email", "Email can't be blank")
	} else {
		c.check("email", email, rule{"email,max=320", "Email must be a valid email address"})
	}

	if in.Password == "" {
		c.add("password", "Password can't be blank")
		return
	}
	c.check("password", in.Password,
		rule{"min=6", "Password is too short (minimum is 6 characters)"},
		rule{"letterdigit", "Password must include at least one letter and one number"},
	)
	if in.PasswordConfirmation != in.Password {
		c.add("password_confirmation", "Password confirmation doesn't match Password")
	}
}

// StudentInput is the raw student form.
type StudentInput struct {
	Name string
	Age  string
}

// StudentParams is a validated student form.
type StudentParams struct {
	Name string
	Age  int
}

// Student field limits, matching the column definitions.
const (
	maxNameLength = 255
	minAge        = 0
	maxAge        = 1000
)

// ValidateStudent coerces and checks the student form.
func ValidateStudent(in StudentInput) (StudentParams, error) {
	var c collector
	params := StudentParams{Name: strings.TrimSpace(in.Name)}

	c.check("name", params.Name, rule{"max=" + strconv.Itoa(maxNameLength), "Name is too long (maximum is 255 characters)"})

	age, err := strconv.Atoi(strings.TrimSpace(in.Age))
	if err != nil {
		c.add("age", "Age is not a number")
	} else {
		params.Age = age
		c.check("age", age, rule{
			"gte=" + strconv.Itoa(minAge) + ",lte=" + strconv.Itoa(maxAge),
			"Age must be between 0 and 1000",
		})
	}

	if err := c.err(); err != nil {
		return StudentParams{}, err
	}
	return params, nil
}
