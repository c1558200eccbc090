package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/service"
	"github.com/rosterly/rosterly/internal/session"
)

type fakeUsers map[string]*model.User

func (f fakeUsers) UserByID(_ context.Context, id string) (*model.User, error) {
	if id == "broken" {
		return nil, errors.New("database is down")
	}
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, service.ErrUserNotFound
}

var testUsers = fakeUsers{"u1": {ID: "u1", Email: "ann@example.com"}}

// requestWithSession returns a request whose context carries a session
// logged in as userID ("" for anonymous).
func requestWithSession(method, path, userID string) (*http.Request, *session.Session) {
	sess := session.FromContext(context.Background())
	if userID != "" {
		sess.SetUserID(userID)
	}
	req := httptest.NewRequest(method, path, nil)
	return req.WithContext(session.NewContext(req.Context(), sess)), sess
}

func currentUser() func(http.Handler) http.Handler {
	return CurrentUser(CurrentUserConfig{Logger: slog.New(slog.DiscardHandler), Users: testUsers})
}

func TestCurrentUser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		sessionID  string
		wantUser   string
		wantClears bool
	}{
		{"anonymous", "", "", false},
		{"logged in", "u1", "u1", false},
		{"stale user", "gone", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got string
			handler := currentUser()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = auth.UserIDFromContext(r.Context())
			}))

			req, sess := requestWithSession(http.MethodGet, "/", tt.sessionID)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.wantUser {
				t.Errorf("current user = %q, want %q", got, tt.wantUser)
			}
			if tt.wantClears && sess.UserID() != "" {
				t.Errorf("stale user id %q was not cleared", sess.UserID())
			}
		})
	}
}

func TestCurrentUser_LookupError(t *testing.T) {
	t.Parallel()

	var handled error
	mw := CurrentUser(CurrentUserConfig{
		Logger: slog.New(slog.DiscardHandler),
		Users:  testUsers,
		OnError: func(w http.ResponseWriter, r *http.Request, err error) {
			handled = err
			w.WriteHeader(http.StatusInternalServerError)
		},
	})

	called := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	req, _ := requestWithSession(http.MethodGet, "/", "broken")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if called {
		t.Error("next handler should not run when the lookup fails")
	}
	if handled == nil || rec.Code != http.StatusInternalServerError {
		t.Errorf("OnError not used: err=%v status=%d", handled, rec.Code)
	}
}

func TestRequireLogin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		method     string
		userID     string
		wantCalled bool
		wantStatus int
	}{
		{"anonymous list", http.MethodGet, "", false, http.StatusFound},
		{"anonymous delete", http.MethodPost, "", false, http.StatusFound},
		{"stale user", http.MethodGet, "gone", false, http.StatusFound},
		{"logged in", http.MethodGet, "u1", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := metrics.NewInMemory()
			called := false
			handler := currentUser()(RequireLogin(slog.New(slog.DiscardHandler), rec)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }),
			))

			req, sess := requestWithSession(tt.method, "/students/1/delete", tt.userID)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if called != tt.wantCalled {
				t.Fatalf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantCalled {
				return
			}

			if loc := w.Header().Get("Location"); loc != LoginPath {
				t.Errorf("Location = %q, want %q", loc, LoginPath)
			}
			flash := sess.PopFlash()
			if flash == nil || flash.Severity != model.SeverityError || flash.Message != LoginRequiredMessage {
				t.Errorf("flash = %+v, want error %q", flash, LoginRequiredMessage)
			}
			if got := rec.Snapshot().LoginsRequired; got != 1 {
				t.Errorf("LoginsRequired = %d, want 1", got)
			}
		})
	}
}
