package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rosterly/rosterly/internal/metrics"
	"github.com/rosterly/rosterly/internal/middleware"
	"github.com/rosterly/rosterly/internal/model"
	"github.com/rosterly/rosterly/internal/service"
	"github.com/rosterly/rosterly/internal/session"
	"github.com/rosterly/rosterly/internal/view"
)

// AuthHandler handles signup, login and logout.
type AuthHandler struct {
	*Handler
	svc     *service.AuthService
	metrics metrics.Recorder
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(base *Handler, svc *service.AuthService, recorder metrics.Recorder) *AuthHandler {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &AuthHandler{Handler: base, svc: svc, metrics: recorder}
}

// SignupForm handles GET /signup.
func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Signup, "Sign up", view.NewForm())
}

// Signup handles POST /signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	user, err := h.svc.Signup(r.Context(), service.SignupInput{
		Email:                email,
		Password:             r.PostFormValue("password"),
		PasswordConfirmation: r.PostFormValue("password_confirmation"),
	})
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) {
			h.logger.Info("signup_rejected",
				slog.Int("errors", len(verr.Fields)),
				slog.String("request_id", middleware.GetRequestID(r.Context())),
			)
			setFlash(r, model.SeverityError, verr.Error())
			h.render(w, r, http.StatusUnprocessableEntity, view.Signup, "Sign up", view.NewForm().Set("email", email))
			return
		}
		h.InternalError(w, r, err)
		return
	}

	h.logger.Info("user_signed_up",
		slog.String("user_id", user.ID),
	)

	redirectWithFlash(w, r, "/login", model.SeveritySuccess, "Signup successfully. Please login.")
}

// LoginForm handles GET /login.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, view.Login, "Login", view.NewForm())
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	email := r.PostFormValue("email")
	user, err := h.svc.Login(r.Context(), email, r.PostFormValue("password"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			h.logger.Warn("login_failed",
				slog.String("ip", r.RemoteAddr),
				slog.String("request_id", middleware.GetRequestID(r.Context())),
			)
			setFlash(r, model.SeverityError, "Invalid email or password")
			h.render(w, r, http.StatusUnauthorized, view.Login, "Login", view.NewForm().Set("email", email))
			return
		}
		h.InternalError(w, r, err)
		return
	}

	sess := session.FromContext(r.Context())
	// Rotate the session ID on privilege change.
	sess.Renew()
	sess.SetUserID(user.ID)

	h.logger.Info("user_logged_in",
		slog.String("user_id", user.ID),
	)

	redirectWithFlash(w, r, "/students", model.SeveritySuccess, "Login successfully")
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	if userID := sess.UserID(); userID != "" {
		h.logger.Info("user_logged_out",
			slog.String("user_id", userID),
		)
	}
	sess.ClearUserID()
	h.metrics.IncLogout()

	redirectWithFlash(w, r, "/login", model.SeveritySuccess, "Logout successfully")
}
