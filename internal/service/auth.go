package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/repository"
)

// Auth errors.
var (
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
)

const emailTakenMessage = "Email has already been taken"

// UserStore is the persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// AuthService handles signup and credential checks.
type AuthService struct {
	users   UserStore
	hasher  *auth.Hasher
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, hasher *auth.Hasher, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthService{
		users:   users,
		hasher:  hasher,
		metrics: recorder,
		now:     time.Now,
	}
}

// Signup validates the form and creates the user. All failures found are
// reported together in a *ValidationError.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	user, err := s.signup(ctx, in)
	if err != nil {
		s.metrics.IncSignup(metrics.OutcomeFailure)
		return nil, err
	}
	s.metrics.IncSignup(metrics.OutcomeSuccess)
	return user, nil
}

func (s *AuthService) signup(ctx context.Context, in SignupInput) (*model.User, error) {
	var c collector
	validateSignup(&c, in)

	email := NormalizeEmail(in.Email)
	if email != "" && !c.has("email") {
		_, err := s.users.GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			c.add("email", emailTakenMessage)
		case !errors.Is(err, repository.ErrUserNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	if err := c.err(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           ulid.Make().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		// Handle race condition - another request may have taken the email
		if errors.Is(err, repository.ErrEmailExists) {
			return nil, &ValidationError{Fields: []FieldError{{Field: "email", Message: emailTakenMessage}}}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login returns the user whose credentials match. Unknown email and wrong
// password both return ErrInvalidCredentials after the same hashing work.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to look up user: %w", err)
		}
		s.hasher.VerifyDummy(password)
		s.metrics.IncLogin(metrics.OutcomeFailure)
		return nil, ErrInvalidCredentials
	}

	// A malformed stored hash can never match.
	if ok, err := s.hasher.Verify(password, user.PasswordHash); err != nil || !ok {
		s.metrics.IncLogin(metrics.OutcomeFailure)
		return nil, ErrInvalidCredentials
	}

	s.metrics.IncLogin(metrics.OutcomeSuccess)
	return user, nil
}

// UserByID loads the user recorded in a session.
func (s *AuthService) UserByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
