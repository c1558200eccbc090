package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/repository"
)

func newTestAuthService(t *testing.T) (*AuthService, *metrics.InMemoryRecorder) {
	t.Helper()

	rec := metrics.NewInMemory()
	return NewAuthService(newTestStore(t), newTestHasher(t), rec), rec
}

func TestSignup_Success(t *testing.T) {
	svc, rec := newTestAuthService(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{
		Email:                " Ann@Example.com ",
		Password:             "abc123",
		PasswordConfirmation: "abc123",
	})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	if user.Email != "ann@example.com" {
		t.Errorf("email = %q, want normalized", user.Email)
	}
	if user.ID == "" {
		t.Error("expected generated ID")
	}

	stored, err := svc.users.GetUserByEmail(ctx, "ann@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail failed: %v", err)
	}
	if stored.PasswordHash == "abc123" || !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Errorf("stored hash is not an argon2id hash: %q", stored.PasswordHash)
	}
	if got := rec.Snapshot().SignupsSucceeded; got != 1 {
		t.Errorf("SignupsSucceeded = %d, want 1", got)
	}
}

func TestSignup_InvalidPersistsNothing(t *testing.T) {
	tests := []struct {
		name  string
		input SignupInput
		want  string
	}{
		{"bad_email", SignupInput{Email: "nope", Password: "abc123", PasswordConfirmation: "abc123"}, "Email must be a valid email address"},
		{"weak_password", SignupInput{Email: "bob@example.com", Password: "abcdef", PasswordConfirmation: "abcdef"}, "Password must include at least one letter and one number"},
		{"mismatch", SignupInput{Email: "bob@example.com", Password: "abc123", PasswordConfirmation: "abc999"}, "Password confirmation doesn't match Password"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			svc, rec := newTestAuthService(t)
			ctx := context.Background()

			_, err := svc.Signup(ctx, test.input)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if !slices.Contains(verr.Messages(), test.want) {
				t.Fatalf("messages = %q, want to contain %q", verr.Messages(), test.want)
			}

			email := NormalizeEmail(test.input.Email)
			if _, err := svc.users.GetUserByEmail(ctx, email); !errors.Is(err, repository.ErrUserNotFound) {
				t.Fatalf("expected no stored user, got %v", err)
			}
			if got := rec.Snapshot().SignupsFailed; got != 1 {
				t.Errorf("SignupsFailed = %d, want 1", got)
			}
		})
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	in := SignupInput{Email: "ann@example.com", Password: "abc123", PasswordConfirmation: "abc123"}
	if _, err := svc.Signup(ctx, in); err != nil {
		t.Fatalf("first Signup failed: %v", err)
	}

	in.Email = "ANN@example.com"
	in.Password = "short"
	in.PasswordConfirmation = "short"
	_, err := svc.Signup(ctx, in)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	want := []string{
		"Password is too short (minimum is 6 characters)",
		"Password must include at least one letter and one number",
		"Email has already been taken",
	}
	if !slices.Equal(verr.Messages(), want) {
		t.Fatalf("messages = %q, want %q", verr.Messages(), want)
	}
}

// racingStore reports the email as free and then loses the insert race.
type racingStore struct {
	UserStore
}

func (racingStore) GetUserByEmail(context.Context, string) (*model.User, error) {
	return nil, repository.ErrUserNotFound
}

func (racingStore) CreateUser(context.Context, *model.User) error {
	return repository.ErrEmailExists
}

func TestSignup_InsertRaceMapsToValidation(t *testing.T) {
	t.Parallel()

	svc := NewAuthService(racingStore{}, newTestHasher(t), nil)

	_, err := svc.Signup(context.Background(), SignupInput{
		Email:                "ann@example.com",
		Password:             "abc123",
		PasswordConfirmation: "abc123",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if got := verr.For("email"); len(got) != 1 || got[0] != "Email has already been taken" {
		t.Fatalf("email messages = %q", got)
	}
}

func TestLogin(t *testing.T) {
	svc, rec := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, SignupInput{Email: "ann@example.com", Password: "abc123", PasswordConfirmation: "abc123"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	user, err := svc.Login(ctx, "  ANN@example.com", "abc123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != created.ID {
		t.Errorf("logged in as %q, want %q", user.ID, created.ID)
	}

	if _, err := svc.Login(ctx, "ann@example.com", "wrong1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "abc123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}

	snap := rec.Snapshot()
	if snap.LoginsSucceeded != 1 || snap.LoginsFailed != 2 {
		t.Errorf("logins = %d ok / %d failed, want 1 / 2", snap.LoginsSucceeded, snap.LoginsFailed)
	}
}

func TestUserByID(t *testing.T) {
	svc, _ := newTestAuthService(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, SignupInput{Email: "ann@example.com", Password: "abc123", PasswordConfirmation: "abc123"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}

	got, err := svc.UserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("UserByID failed: %v", err)
	}
	if got.Email != created.Email {
		t.Errorf("email = %q, want %q", got.Email, created.Email)
	}

	if _, err := svc.UserByID(ctx, "01HZZZZZZZZZZZZZZZZZZZZZZZ"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}
