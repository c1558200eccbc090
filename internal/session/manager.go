package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidCookie indicates a cookie whose signature does not verify.
var ErrInvalidCookie = errors.New("invalid session cookie")

// Config controls the session cookie.
type Config struct {
	CookieName string
	Secret     []byte
	TTL        time.Duration
	Secure     bool
}

// ErrorFunc renders a response when the session backend fails.
type ErrorFunc func(w http.ResponseWriter, r *http.Request, err error)

// Manager loads sessions for incoming requests and commits changes before
// the response is written.
type Manager struct {
	store   Store
	cfg     Config
	logger  *slog.Logger
	onError ErrorFunc
	newID   func() string
}

// NewManager creates a Manager. onError may be nil.
func NewManager(store Store, cfg Config, logger *slog.Logger, onError ErrorFunc) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "rosterly_session"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 14 * 24 * time.Hour
	}
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, _ error) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}
	}
	return &Manager{
		store:   store,
		cfg:     cfg,
		logger:  logger,
		onError: onError,
		newID:   uuid.NewString,
	}
}

// Store returns the backing store.
func (m *Manager) Store() Store {
	return m.store
}

// Middleware attaches the client's session to the request context.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.load(r)
		if err != nil {
			m.logger.Error("session load failed",
				slog.String("error", err.Error()),
				slog.String("path", r.URL.Path),
			)
			m.onError(w, r, err)
			return
		}

		cw := &commitWriter{ResponseWriter: w, commit: func() {
			m.commit(r.Context(), w, sess)
		}}

		next.ServeHTTP(cw, r.WithContext(NewContext(r.Context(), sess)))

		// Handlers that never write still get their session persisted.
		cw.ensureCommitted()
	})
}

func (m *Manager) load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return newSession(m.newID(), nil), nil
	}

	id, err := m.verify(cookie.Value)
	if err != nil {
		return newSession(m.newID(), nil), nil
	}

	data, err := m.store.Load(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if data == nil {
		// Expired or unknown: start over under a new ID.
		return newSession(m.newID(), nil), nil
	}
	return newSession(id, data), nil
}

func (m *Manager) commit(ctx context.Context, w http.ResponseWriter, s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return
	}
	s.dirty = false

	if s.renew {
		if !s.fresh {
			if err := m.store.Delete(ctx, s.id); err != nil {
				m.logger.Warn("session delete failed", slog.String("error", err.Error()))
			}
		}
		s.id = m.newID()
		s.fresh = true
		s.renew = false
	}

	if s.data.IsEmpty() {
		if !s.fresh {
			if err := m.store.Delete(ctx, s.id); err != nil {
				m.logger.Warn("session delete failed", slog.String("error", err.Error()))
			}
			m.expireCookie(w)
		}
		return
	}

	if err := m.store.Save(ctx, s.id, s.data, m.cfg.TTL); err != nil {
		m.logger.Error("session save failed", slog.String("error", err.Error()))
		return
	}
	s.fresh = false
	m.setCookie(w, s.id)
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    m.sign(id),
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) expireCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sign returns "<id>.<mac>".
func (m *Manager) sign(id string) string {
	return id + "." + base64.RawURLEncoding.EncodeToString(m.mac(id))
}

// verify returns the session ID from a signed cookie value.
func (m *Manager) verify(value string) (string, error) {
	id, sig, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", ErrInvalidCookie
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", ErrInvalidCookie
	}
	if !hmac.Equal(got, m.mac(id)) {
		return "", ErrInvalidCookie
	}
	return id, nil
}

func (m *Manager) mac(id string) []byte {
	h := hmac.New(sha256.New, m.cfg.Secret)
	h.Write([]byte(id))
	return h.Sum(nil)
}

// commitWriter runs commit once, right before the header is sent.
type commitWriter struct {
	http.ResponseWriter
	commit    func()
	committed bool
}

func (cw *commitWriter) ensureCommitted() {
	if !cw.committed {
		cw.committed = true
		cw.commit()
	}
}

func (cw *commitWriter) WriteHeader(code int) {
	cw.ensureCommitted()
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *commitWriter) Write(b []byte) (int, error) {
	cw.ensureCommitted()
	return cw.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (cw *commitWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}
