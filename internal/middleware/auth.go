package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rosterly/rosterly/internal/auth"
	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/service"
	"github.com/rosterly/rosterly/internal/session"
)

// LoginPath is where anonymous visitors are sent.
const LoginPath = "/login"

// LoginRequiredMessage is flashed when a gated page is requested anonymously.
const LoginRequiredMessage = "Please login first."

// UserLoader resolves the user recorded in a session.
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
}

// CurrentUserConfig holds configuration for the CurrentUser middleware.
type CurrentUserConfig struct {
	Logger *slog.Logger
	Users  UserLoader
	// OnError renders the response when the user lookup itself fails.
	OnError func(w http.ResponseWriter, r *http.Request, err error)
}

// CurrentUser resolves the session's user once per request and stores it in
// the request context. A session whose user no longer exists is treated as
// logged out and its user ID is cleared.
func CurrentUser(cfg CurrentUserConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			userID := sess.UserID()
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := cfg.Users.UserByID(r.Context(), userID)
			switch {
			case errors.Is(err, service.ErrUserNotFound):
				cfg.Logger.Warn("stale_session_user",
					slog.String("user_id", userID),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				sess.ClearUserID()
				next.ServeHTTP(w, r)
			case err != nil:
				cfg.Logger.Error("current user lookup failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				if cfg.OnError != nil {
					cfg.OnError(w, r, err)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			default:
				next.ServeHTTP(w, r.WithContext(auth.ContextWithUser(r.Context(), user)))
			}
		})
	}
}

// RequireLogin returns a middleware that lets logged-in users through and
// sends everyone else to the login page with an error flash. It must run
// after CurrentUser.
func RequireLogin(logger *slog.Logger, recorder metrics.Recorder) func(http.Handler) http.Handler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if auth.IsLoggedIn(r.Context()) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Info("login_required",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			recorder.IncLoginRequired()

			session.FromContext(r.Context()).SetFlash(model.SeverityError, LoginRequiredMessage)
			http.Redirect(w, r, LoginPath, http.StatusFound)
		})
	}
}
